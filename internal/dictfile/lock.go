package dictfile

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// Lock takes a cross-process lock on <path>.lock so two compilers never
// write the same artifact at once. The returned func releases it.
func Lock(ctx context.Context, path string) (func() error, error) {
	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("locking %s: lock not acquired", path)
	}
	return fl.Unlock, nil
}
