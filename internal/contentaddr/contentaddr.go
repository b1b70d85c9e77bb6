// Package contentaddr derives the deduplication identity and the object
// storage key of an uploaded document. Everything here is pure except the
// Registry, which orchestration backs with its own store.
package contentaddr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sync"
)

var (
	// ErrDuplicate reports that a document with the same digest is indexed.
	ErrDuplicate = errors.New("duplicate content")
	// ErrMalformedKey reports a storage key that StorageKey could not have
	// produced.
	ErrMalformedKey = errors.New("malformed storage key")
)

const hexLen = sha256.Size * 2

// DocumentDigest is the content identity of a document plus its key.
type DocumentDigest struct {
	SHA256     [sha256.Size]byte
	StorageKey string
}

// Hex returns the lowercase hex form of the digest.
func (d DocumentDigest) Hex() string {
	return hex.EncodeToString(d.SHA256[:])
}

// Digest hashes b with SHA-256.
func Digest(b []byte) [sha256.Size]byte {
	return sha256.Sum256(b)
}

// StorageKey joins the hex digest and the path-escaped filename. The key is
// always a single valid object path segment.
func StorageKey(d [sha256.Size]byte, filename string) string {
	return hex.EncodeToString(d[:]) + "-" + url.PathEscape(filename)
}

// DigestAndKey computes both halves of a document's identity.
func DigestAndKey(b []byte, filename string) DocumentDigest {
	d := Digest(b)
	return DocumentDigest{SHA256: d, StorageKey: StorageKey(d, filename)}
}

// ParseStorageKey splits a key back into its digest and original filename.
func ParseStorageKey(key string) ([sha256.Size]byte, string, error) {
	var d [sha256.Size]byte
	if len(key) < hexLen+1 || key[hexLen] != '-' {
		return d, "", fmt.Errorf("%w: %q", ErrMalformedKey, key)
	}
	if _, err := hex.Decode(d[:], []byte(key[:hexLen])); err != nil {
		return d, "", fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	name, err := url.PathUnescape(key[hexLen+1:])
	if err != nil {
		return d, "", fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return d, name, nil
}

// Registry answers whether a digest is already indexed and under which key.
type Registry interface {
	Known(ctx context.Context, digest [sha256.Size]byte) (storageKey string, found bool, err error)
}

// CheckDuplicate returns an error wrapping ErrDuplicate when reg already
// holds d's digest, whatever the filename it was stored under.
func CheckDuplicate(ctx context.Context, reg Registry, d DocumentDigest) error {
	existing, found, err := reg.Known(ctx, d.SHA256)
	if err != nil {
		return fmt.Errorf("checking digest %s: %w", d.Hex(), err)
	}
	if found {
		return fmt.Errorf("%w: stored as %s", ErrDuplicate, existing)
	}
	return nil
}

// MemoryRegistry is an in-process Registry.
type MemoryRegistry struct {
	mu   sync.RWMutex
	keys map[[sha256.Size]byte]string
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{keys: make(map[[sha256.Size]byte]string)}
}

// Known implements Registry.
func (r *MemoryRegistry) Known(_ context.Context, digest [sha256.Size]byte) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[digest]
	return key, ok, nil
}

// Add records d. It returns false when the digest was already present.
func (r *MemoryRegistry) Add(d DocumentDigest) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[d.SHA256]; ok {
		return false
	}
	r.keys[d.SHA256] = d.StorageKey
	return true
}

// Remove forgets the digest of key, if present.
func (r *MemoryRegistry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for digest, k := range r.keys {
		if k == key {
			delete(r.keys, digest)
			return
		}
	}
}
