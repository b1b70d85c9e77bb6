package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/contentaddr"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/events"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/blobstore"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/tracing"
)

const (
	sourceUpload = "upload"
	sourceText   = "text"
)

// Store is the persistence the pipeline needs. *store.Store implements it.
type Store interface {
	contentaddr.Registry
	InsertDocument(ctx context.Context, doc store.Document, records []keywords.KeywordRecord) error
	GetDocument(ctx context.Context, key string) (store.Document, error)
	DeleteDocument(ctx context.Context, key string) error
}

type Service struct {
	store     Store
	blobs     blobstore.Store
	events    events.Publisher
	extractor *keywords.Extractor
	cfg       config.IndexerConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New wires a Service. m may be nil.
func New(st Store, blobs blobstore.Store, pub events.Publisher, extractor *keywords.Extractor, cfg config.IndexerConfig, m *metrics.Metrics) *Service {
	return &Service{
		store:     st,
		blobs:     blobs,
		events:    pub,
		extractor: extractor,
		cfg:       cfg,
		metrics:   m,
		logger:    slog.Default().With("component", "indexing"),
	}
}

// IndexUpload indexes a raw file.
func (s *Service) IndexUpload(ctx context.Context, up Upload) (*Receipt, error) {
	return s.index(ctx, up, sourceUpload)
}

// IndexText indexes inline text as if Body had been uploaded as Name.
func (s *Service) IndexText(ctx context.Context, doc TextDocument) (*Receipt, error) {
	return s.index(ctx, Upload{
		Filename:    doc.Name,
		Title:       doc.Title,
		Description: doc.Description,
		ContentType: docTypePlain,
		Data:        []byte(doc.Body),
	}, sourceText)
}

func (s *Service) index(ctx context.Context, up Upload, source string) (*Receipt, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	if err := validateMeta(up.Filename, up.Title, up.Description); err != nil {
		return nil, err
	}
	if len(up.Data) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "document is empty")
	}
	if s.cfg.MaxUploadSize > 0 && int64(len(up.Data)) > s.cfg.MaxUploadSize {
		return nil, apperrors.Newf(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge,
			"document is %d bytes, limit is %d", len(up.Data), s.cfg.MaxUploadSize)
	}
	docType, err := detectDocType(up.Filename, up.ContentType, up.Data)
	if err != nil {
		return nil, err
	}

	digest := contentaddr.DigestAndKey(up.Data, up.Filename)
	if err := contentaddr.CheckDuplicate(ctx, s.store, digest); err != nil {
		if errors.Is(err, contentaddr.ErrDuplicate) {
			if s.metrics != nil {
				s.metrics.DuplicatesRejectedTotal.Inc()
			}
			return nil, apperrors.New(apperrors.ErrDocumentExists, http.StatusConflict, err.Error())
		}
		return nil, fmt.Errorf("checking duplicates: %w", err)
	}

	var res keywords.Result
	err = tracing.Run(ctx, "extract", func(ctx context.Context) error {
		extractStart := time.Now()
		var err error
		res, err = s.extractor.ExtractContext(ctx, keywords.Document{
			Title:       up.Title,
			Description: up.Description,
			Body:        string(up.Data),
		})
		if s.metrics != nil {
			s.metrics.ExtractionDuration.Observe(time.Since(extractStart).Seconds())
		}
		return err
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("extracting keywords: %w: %w", apperrors.ErrTimeout, err)
	}
	if err != nil {
		return nil, fmt.Errorf("extracting keywords: %w", err)
	}
	records := keywords.Records(digest.StorageKey, res)

	err = tracing.Run(ctx, "blob.put", func(ctx context.Context) error {
		return s.blobs.Put(ctx, digest.StorageKey, blobstore.Object{Data: up.Data, ContentType: docType})
	})
	if err != nil {
		return nil, fmt.Errorf("storing original: %w: %w", apperrors.ErrUnavailable, err)
	}

	doc := store.Document{
		StorageKey:  digest.StorageKey,
		Digest:      digest.Hex(),
		Filename:    up.Filename,
		Title:       up.Title,
		Description: up.Description,
		DocType:     docType,
		Size:        int64(len(up.Data)),
	}
	err = tracing.Run(ctx, "store.insert", func(ctx context.Context) error {
		return s.store.InsertDocument(ctx, doc, records)
	})
	if err != nil {
		if delErr := s.blobs.Delete(context.WithoutCancel(ctx), digest.StorageKey); delErr != nil {
			log.Error("failed to remove orphaned blob", "storage_key", digest.StorageKey, "error", delErr)
		}
		return nil, fmt.Errorf("persisting document: %w", err)
	}

	s.publish(ctx, events.IndexEvent{
		Type:       events.TypeIndexed,
		StorageKey: digest.StorageKey,
		Digest:     digest.Hex(),
		Keywords:   len(records),
	})
	s.observe(source, res, len(records))

	log.Info("document indexed",
		"storage_key", digest.StorageKey,
		"source", source,
		"size", len(up.Data),
		"keywords", len(records),
		"corrected", res.Stats.Corrected,
	)
	return &Receipt{
		StorageKey: digest.StorageKey,
		Digest:     digest.Hex(),
		Filename:   up.Filename,
		DocType:    docType,
		Size:       int64(len(up.Data)),
		Keywords:   len(records),
		Stats:      res.Stats,
		Took:       time.Since(start).String(),
	}, nil
}

// Delete removes a document, its keywords and its original.
func (s *Service) Delete(ctx context.Context, key string) error {
	doc, err := s.store.GetDocument(ctx, key)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, key); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		logger.FromContext(ctx).Error("failed to delete original", "storage_key", key, "error", err)
	}
	s.publish(ctx, events.IndexEvent{Type: events.TypeDeleted, StorageKey: key, Digest: doc.Digest})
	return nil
}

// Content returns the original bytes of key.
func (s *Service) Content(ctx context.Context, key string) (blobstore.Object, error) {
	obj, err := s.blobs.Get(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return blobstore.Object{}, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "no content stored for %s", key)
	}
	if err != nil {
		return blobstore.Object{}, fmt.Errorf("fetching original: %w", err)
	}
	return obj, nil
}

func (s *Service) publish(ctx context.Context, ev events.IndexEvent) {
	if s.events == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Error("failed to publish index event, search cache may be stale",
			"type", ev.Type,
			"storage_key", ev.StorageKey,
			"error", err,
		)
	}
}

func (s *Service) observe(source string, res keywords.Result, n int) {
	if s.metrics == nil {
		return
	}
	s.metrics.DocsIndexedTotal.WithLabelValues(source).Inc()
	s.metrics.KeywordsPerDocument.Observe(float64(n))
	st := res.Stats
	for outcome, count := range map[string]int{
		"short":      st.Short,
		"stop_word":  st.StopWords,
		"lemmatized": st.Lemmatized,
		"known":      st.Known,
		"corrected":  st.Corrected,
		"unknown":    st.Unknown,
	} {
		if count > 0 {
			s.metrics.TokenOutcomesTotal.WithLabelValues(outcome).Add(float64(count))
		}
	}
}
