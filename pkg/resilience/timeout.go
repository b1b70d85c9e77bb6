package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/errors"
)

// WithTimeout runs fn under a deadline derived from ctx. When the deadline
// and not the parent ends the call, the error wraps errors.ErrTimeout.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(timeoutCtx)
	if err != nil && ctx.Err() == nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w (limit: %v): %w", name, apperrors.ErrTimeout, timeout, err)
	}
	return err
}
