package search

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/metrics"
)

const keyPrefix = "search:"

// Backend is the key-value store behind the cache. *redis.Client from
// pkg/redis implements it.
type Backend interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Cache memoizes search results and collapses concurrent identical
// queries into one computation. Backend failures degrade to misses.
type Cache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewCache(backend Backend, ttl time.Duration, m *metrics.Metrics) *Cache {
	return &Cache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "search-cache"),
	}
}

func (c *Cache) get(ctx context.Context, key string) (*Result, bool) {
	data, ok, err := c.backend.GetBytes(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
	}
	if !ok {
		c.miss()
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return &res, true
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *Cache) set(ctx context.Context, key string, res *Result) {
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for terms and limit, or runs
// compute once for all concurrent callers and stores its result. The
// boolean reports a cache hit.
func (c *Cache) GetOrCompute(ctx context.Context, terms []string, limit int, compute func() (*Result, error)) (*Result, bool, error) {
	key := buildKey(terms, limit)
	if res, ok := c.get(ctx, key); ok {
		return res, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		res, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, res)
		return res, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Result), false, nil
}

// Invalidate drops every cached result.
func (c *Cache) Invalidate(ctx context.Context) error {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating search cache: %w", err)
	}
	c.logger.Debug("search cache invalidated", "keys_deleted", deleted)
	return nil
}

func buildKey(terms []string, limit int) string {
	raw := fmt.Sprintf("%s:limit=%d", strings.Join(terms, " "), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
