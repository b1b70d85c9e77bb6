// Package apikey validates the API keys allowed to modify the index. Keys
// come from configuration and are kept only as SHA-256 hashes; a presented
// key is hashed and compared in constant time against each of them.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var ErrInvalidKey = errors.New("invalid api key")

// KeyInfo identifies a validated key without revealing it.
type KeyInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type storedKey struct {
	hash [sha256.Size]byte
	info KeyInfo
}

type Validator struct {
	keys   []storedKey
	logger *slog.Logger
}

// NewValidator hashes the configured keys. An entry may be written
// "name:key" to label it in logs; a bare key is named after its hash.
func NewValidator(keys []string) *Validator {
	v := &Validator{logger: slog.Default().With("component", "apikey-validator")}
	for _, raw := range keys {
		name, key, found := strings.Cut(raw, ":")
		if !found {
			name, key = "", raw
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		hash := sha256.Sum256([]byte(key))
		id := hex.EncodeToString(hash[:4])
		if name == "" {
			name = "key-" + id
		}
		v.keys = append(v.keys, storedKey{hash: hash, info: KeyInfo{ID: id, Name: name}})
	}
	return v
}

// Enabled reports whether any key is configured. Without keys mutating
// routes are open.
func (v *Validator) Enabled() bool {
	return len(v.keys) > 0
}

// Validate returns the KeyInfo of rawKey or ErrInvalidKey.
func (v *Validator) Validate(_ context.Context, rawKey string) (*KeyInfo, error) {
	hash := sha256.Sum256([]byte(rawKey))
	var match *KeyInfo
	for i := range v.keys {
		if subtle.ConstantTimeCompare(hash[:], v.keys[i].hash[:]) == 1 {
			match = &v.keys[i].info
		}
	}
	if match == nil {
		return nil, ErrInvalidKey
	}
	info := *match
	return &info, nil
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}

// GenerateKey returns a random 32-byte hex-encoded key.
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
