package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryConfig bounds an exponential backoff. Zero fields take defaults.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
	// Retryable filters errors worth another attempt. Nil retries all.
	Retryable func(err error) bool
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.JitterPercent == 0 {
		c.JitterPercent = 10
	}
	return c
}

func (c RetryConfig) backoff() retry.Backoff {
	b := retry.NewExponential(c.InitialDelay)
	b = retry.WithJitterPercent(c.JitterPercent, b)
	b = retry.WithCappedDuration(c.MaxDelay, b)
	return retry.WithMaxRetries(uint64(c.MaxAttempts-1), b)
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx ends. Delays double from InitialDelay with jitter.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	attempt, exhausted := 0, false
	err := retry.Do(ctx, cfg.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		switch {
		case err == nil:
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		case cfg.Retryable != nil && !cfg.Retryable(err):
			return err
		case attempt < cfg.MaxAttempts:
			logger.Warn("operation failed, retrying", "attempt", attempt, "max_attempts", cfg.MaxAttempts, "error", err)
		default:
			exhausted = true
		}
		return retry.RetryableError(err)
	})
	if exhausted {
		return fmt.Errorf("all %d attempts failed for %s: %w", cfg.MaxAttempts, name, err)
	}
	return err
}
