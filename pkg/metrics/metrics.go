// Package metrics defines the Prometheus collectors of the indexer and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	DocsIndexedTotal        *prometheus.CounterVec
	DuplicatesRejectedTotal prometheus.Counter
	TokenOutcomesTotal      *prometheus.CounterVec
	KeywordsPerDocument     prometheus.Histogram
	ExtractionDuration      prometheus.Histogram

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter

	BlobOperationsTotal *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindexer_documents_indexed_total",
				Help: "Documents indexed by source (upload, text).",
			},
			[]string{"source"},
		),
		DuplicatesRejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docindexer_duplicates_rejected_total",
				Help: "Uploads rejected because their digest is already indexed.",
			},
		),
		TokenOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindexer_token_outcomes_total",
				Help: "Tokens by resolution outcome (short, stop_word, lemmatized, known, corrected, unknown).",
			},
			[]string{"outcome"},
		),
		KeywordsPerDocument: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docindexer_keywords_per_document",
				Help:    "Distinct keywords extracted per document.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 9),
			},
		),
		ExtractionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docindexer_extraction_duration_seconds",
				Help:    "Keyword extraction latency per document.",
				Buckets: prometheus.DefBuckets,
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, suggestion, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of search cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of search cache misses.",
			},
		),
		BlobOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindexer_blob_operations_total",
				Help: "Blob store operations by operation and status.",
			},
			[]string{"operation", "status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.DocsIndexedTotal,
		m.DuplicatesRejectedTotal,
		m.TokenOutcomesTotal,
		m.KeywordsPerDocument,
		m.ExtractionDuration,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.BlobOperationsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// NewUnregistered returns collectors bound to a private registry, for tests
// and one-shot commands.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler returns the scrape handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
