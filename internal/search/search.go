// Package search answers keyword queries against the document store. Query
// words go through the same stop-word and lemma steps as indexed text; when
// nothing matches, the spelling-corrected query is tried instead.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/store"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/tracing"
)

// Index is the keyword lookup the service searches. *store.Store
// implements it.
type Index interface {
	SearchKeywords(ctx context.Context, words []string, limit int) ([]store.Hit, error)
}

// Result is the answer to one query.
type Result struct {
	Query           string      `json:"query"`
	Terms           []string    `json:"terms"`
	Suggestion      []string    `json:"suggestion,omitempty"`
	UsingSuggestion bool        `json:"using_suggestion"`
	TotalHits       int         `json:"total_hits"`
	Hits            []store.Hit `json:"hits"`
	Cached          bool        `json:"cached"`
	Took            string      `json:"took"`
}

// Spelling is the correction of a single word.
type Spelling struct {
	Word       string `json:"word"`
	Correction string `json:"correction"`
	Outcome    string `json:"outcome"`
}

type Service struct {
	index     Index
	extractor *keywords.Extractor
	cache     *Cache
	cfg       config.SearchConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds a Service. cache and m may be nil.
func New(index Index, extractor *keywords.Extractor, cache *Cache, cfg config.SearchConfig, m *metrics.Metrics) *Service {
	return &Service{
		index:     index,
		extractor: extractor,
		cache:     cache,
		cfg:       cfg,
		metrics:   m,
		logger:    slog.Default().With("component", "search"),
	}
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxResults > 0 && limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}
	if limit <= 0 {
		limit = 20
	}
	return limit
}

// Search resolves query to terms and returns the best matching documents.
func (s *Service) Search(ctx context.Context, query string, limit int) (*Result, error) {
	start := time.Now()
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query must not be empty")
	}
	limit = s.clampLimit(limit)

	ctx, span := tracing.StartChildSpan(ctx, "search")
	span.SetAttr("query", query)

	terms := s.extractor.NormalizeQuery(query)
	suggestion := s.extractor.SuggestQuery(query)

	compute := func() (*Result, error) {
		return s.execute(ctx, query, terms, suggestion, limit)
	}

	var (
		res    *Result
		cached bool
		err    error
	)
	if s.cache != nil && len(terms) > 0 {
		res, cached, err = s.cache.GetOrCompute(ctx, terms, limit, compute)
	} else {
		res, err = compute()
	}
	span.EndWithError(err)
	if err != nil {
		return nil, err
	}

	out := *res
	out.Query = query
	out.Cached = cached
	out.Took = time.Since(start).String()
	s.observe(&out, time.Since(start))

	logger.FromContext(ctx).Debug("search completed",
		"query", query,
		"terms", terms,
		"hits", out.TotalHits,
		"using_suggestion", out.UsingSuggestion,
		"cached", cached,
	)
	return &out, nil
}

func (s *Service) execute(ctx context.Context, query string, terms, suggestion []string, limit int) (*Result, error) {
	res := &Result{Query: query, Terms: terms, Hits: []store.Hit{}}
	if !slices.Equal(terms, suggestion) {
		res.Suggestion = suggestion
	}
	if len(terms) == 0 && len(suggestion) == 0 {
		return res, nil
	}

	if len(terms) > 0 {
		hits, err := s.index.SearchKeywords(ctx, terms, limit)
		if err != nil {
			return nil, fmt.Errorf("searching %v: %w", terms, err)
		}
		if len(hits) > 0 {
			res.Hits = hits
			res.TotalHits = len(hits)
			return res, nil
		}
	}

	if res.Suggestion == nil {
		return res, nil
	}
	hits, err := s.index.SearchKeywords(ctx, suggestion, limit)
	if err != nil {
		return nil, fmt.Errorf("searching suggestion %v: %w", suggestion, err)
	}
	if len(hits) > 0 {
		res.Hits = hits
		res.TotalHits = len(hits)
		res.UsingSuggestion = true
	}
	return res, nil
}

func (s *Service) observe(res *Result, took time.Duration) {
	if s.metrics == nil {
		return
	}
	resultType := "hits"
	switch {
	case res.TotalHits == 0:
		resultType = "empty"
	case res.UsingSuggestion:
		resultType = "suggestion"
	}
	cacheStatus := "miss"
	if res.Cached {
		cacheStatus = "hit"
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	s.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(took.Seconds())
}

// Spelling corrects one word against the frequency dictionary.
func (s *Service) Spelling(word string) (Spelling, error) {
	folded := lexicon.Fold(word)
	if folded == "" {
		return Spelling{}, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "word must not be empty")
	}
	if s.extractor.Corrector == nil {
		return Spelling{}, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "no frequency dictionary loaded")
	}
	correction, outcome := s.extractor.Corrector.Resolve(folded)
	return Spelling{Word: folded, Correction: correction, Outcome: outcome.String()}, nil
}

// Invalidate drops cached results. It is a no-op without a cache.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}
