package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/api"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/auth/apikey"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/auth/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/events"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/indexing"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/search"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/blobstore"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/redis"
)

// documentStore is what the server needs from either store implementation.
type documentStore interface {
	indexing.Store
	api.Catalog
	search.Index
	Ping(ctx context.Context) error
}

func newServeCmd(opts *options) *cobra.Command {
	var inMemory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the indexing and search HTTP server",
		Long: `Run the HTTP API. Documents are stored in PostgreSQL and their originals
in an S3-compatible bucket; search results are cached in Redis and index
events go through Kafka when enabled.

With --in-memory no external service is used and nothing survives a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, opts.cfg, inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "keep documents and originals in memory (no PostgreSQL or S3)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, inMemory bool) error {
	slog.Info("starting docindexer", "port", cfg.Server.Port, "in_memory", inMemory)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	extractor, err := buildExtractor(cfg)
	if err != nil {
		return err
	}

	checker := health.NewChecker(0)
	checker.Dictionary("stopwords", true, fmt.Sprintf("%d words", extractor.Stop.Len()))
	checker.Dictionary("lemmas", extractor.Lemmas != nil, "")
	checker.Dictionary("frequency", extractor.Corrector != nil, "")

	var st documentStore
	var blobs blobstore.Store
	if inMemory {
		st = store.NewMemory()
		blobs = blobstore.NewMemory()
	} else {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		pg := store.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		st = pg
		slog.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)

		s3 := blobstore.NewS3(cfg.Blob, m)
		if err := s3.EnsureBucket(ctx); err != nil {
			return err
		}
		blobs = s3
	}
	checker.Add("postgres", st.Ping, true)
	checker.Add("blobstore", blobs.Ping, true)

	var cache *search.Cache
	if cfg.Redis.Enabled && !inMemory {
		rc, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer rc.Close()
			cache = search.NewCache(rc, cfg.Redis.CacheTTL, m)
			checker.Add("redis", rc.Ping, false)
		}
	}
	searcher := search.New(st, extractor, cache, cfg.Search, m)

	g, ctx := errgroup.WithContext(ctx)

	var publisher events.Publisher = events.NewLocalPublisher(searcher)
	if cfg.Kafka.Enabled && !inMemory {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexEvents)
		defer producer.Close()
		publisher = events.NewKafkaPublisher(producer)

		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexEvents, cfg.Kafka.ConsumerGroup, events.HandleIndexEvent(searcher))
		g.Go(func() error { return consumer.Start(ctx) })
	}
	indexer := indexing.New(st, blobs, publisher, extractor, cfg.Indexer, m)

	limiter := ratelimit.New(time.Minute)
	defer limiter.Stop()

	handler := api.NewRouter(api.NewHandler(indexer, st, searcher, cfg.Indexer.MaxUploadSize), api.Options{
		Validator:        apikey.NewValidator(cfg.Auth.APIKeys),
		Limiter:          limiter,
		UploadsPerMinute: cfg.Indexer.UploadsPerMinute,
		Metrics:          m,
		Health:           checker,
		RequestTimeout:   cfg.Server.RequestTimeout,
		CORSOrigins:      cfg.Server.CORSOrigins,
		Tracing:          cfg.Tracing.Enabled,
	})
	if len(cfg.Auth.APIKeys) == 0 {
		slog.Warn("no api keys configured, mutating routes are open")
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("docindexer listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("docindexer stopped")
	return err
}
