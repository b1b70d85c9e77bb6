package spelling

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoised corrections.
const DefaultCacheSize = 50_000

type resolution struct {
	word    string
	outcome Outcome
}

// CachedCorrector memoises Resolve results in a bounded LRU. Its output is
// identical to the wrapped Corrector.
type CachedCorrector struct {
	inner *Corrector
	cache *lru.Cache[string, resolution]
}

// NewCachedCorrector wraps c with an LRU of size entries.
func NewCachedCorrector(c *Corrector, size int) (*CachedCorrector, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, resolution](size)
	if err != nil {
		return nil, fmt.Errorf("creating correction cache: %w", err)
	}
	return &CachedCorrector{inner: c, cache: cache}, nil
}

// Resolve returns the memoised resolution of word, computing it on a miss.
func (c *CachedCorrector) Resolve(word string) (string, Outcome) {
	if r, ok := c.cache.Get(word); ok {
		return r.word, r.outcome
	}
	w, o := c.inner.Resolve(word)
	c.cache.Add(word, resolution{word: w, outcome: o})
	return w, o
}

// Correct returns the best correction of word, or word itself.
func (c *CachedCorrector) Correct(word string) string {
	w, _ := c.Resolve(word)
	return w
}

// Len reports how many words are memoised.
func (c *CachedCorrector) Len() int {
	return c.cache.Len()
}
