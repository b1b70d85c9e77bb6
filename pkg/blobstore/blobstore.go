// Package blobstore keeps the original bytes of indexed documents in an
// S3-compatible bucket, keyed by their content-addressed storage key.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound reports a key with no stored object.
var ErrNotFound = errors.New("blob not found")

// Object is a stored document and its declared media type.
type Object struct {
	Data        []byte
	ContentType string
}

// Store is the blob operations the indexer needs.
type Store interface {
	Put(ctx context.Context, key string, obj Object) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
