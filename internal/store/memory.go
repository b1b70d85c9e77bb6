package store

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/internal/keywords"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/errors"
)

// Memory is an in-process implementation of the Store operations, used
// by tests and by the server when no database is configured.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]Document
	keywords map[string][]keywords.KeywordRecord
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string]Document),
		keywords: make(map[string][]keywords.KeywordRecord),
		now:      time.Now,
	}
}

func (m *Memory) InsertDocument(_ context.Context, doc Document, records []keywords.KeywordRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, d := range m.docs {
		if d.Digest == doc.Digest && key != doc.StorageKey {
			return apperrors.Newf(apperrors.ErrDocumentExists, http.StatusConflict, "digest %s is already indexed", doc.Digest)
		}
	}
	if existing, ok := m.docs[doc.StorageKey]; ok {
		doc.CreatedAt = existing.CreatedAt
	} else {
		doc.CreatedAt = m.now().UTC()
	}
	m.docs[doc.StorageKey] = doc
	m.keywords[doc.StorageKey] = slices.Clone(records)
	return nil
}

func (m *Memory) Known(_ context.Context, digest [sha256.Size]byte) (string, bool, error) {
	want := hex.EncodeToString(digest[:])
	m.mu.RLock()
	defer m.mu.RUnlock()
	for key, d := range m.docs {
		if d.Digest == want {
			return key, true, nil
		}
	}
	return "", false, nil
}

func (m *Memory) GetDocument(_ context.Context, key string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[key]
	if !ok {
		return Document{}, apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %s not found", key)
	}
	return d, nil
}

func (m *Memory) ListDocuments(_ context.Context, limit, offset int) ([]Document, error) {
	m.mu.RLock()
	docs := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, d)
	}
	m.mu.RUnlock()

	slices.SortFunc(docs, func(a, b Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.StorageKey, b.StorageKey)
	})
	if offset >= len(docs) {
		return []Document{}, nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs, nil
}

func (m *Memory) DeleteDocument(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[key]; !ok {
		return apperrors.Newf(apperrors.ErrDocumentNotFound, http.StatusNotFound, "document %s not found", key)
	}
	delete(m.docs, key)
	delete(m.keywords, key)
	return nil
}

func (m *Memory) DocumentKeywords(_ context.Context, key string) ([]keywords.KeywordRecord, error) {
	m.mu.RLock()
	out := slices.Clone(m.keywords[key])
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b keywords.KeywordRecord) int {
		if c := cmp.Compare(b.Occurrences, a.Occurrences); c != 0 {
			return c
		}
		return strings.Compare(a.Word, b.Word)
	})
	return out, nil
}

func (m *Memory) SearchKeywords(_ context.Context, words []string, limit int) ([]Hit, error) {
	m.mu.RLock()
	var hits []Hit
	for key, records := range m.keywords {
		var score uint64
		for _, r := range records {
			if slices.Contains(words, r.Word) {
				score += r.Occurrences
			}
		}
		if score > 0 {
			hits = append(hits, Hit{Document: m.docs[key], Score: score})
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.StorageKey, b.StorageKey)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
