package resilience

import (
	"context"
	"errors"
	"time"
)

// PolicyConfig groups the settings of one remote dependency.
type PolicyConfig struct {
	Breaker CircuitBreakerConfig
	Retry   RetryConfig
	// Timeout bounds each attempt. Zero disables it.
	Timeout time.Duration
}

// Policy guards calls to one dependency: every attempt passes through the
// breaker under its own deadline, and idempotent calls are retried.
type Policy struct {
	name    string
	breaker *CircuitBreaker
	retry   RetryConfig
	timeout time.Duration
}

// NewPolicy builds a policy. Rejections by an open breaker are never
// retried.
func NewPolicy(name string, cfg PolicyConfig) *Policy {
	retryable := cfg.Retry.Retryable
	cfg.Retry.Retryable = func(err error) bool {
		if errors.Is(err, ErrCircuitOpen) {
			return false
		}
		return retryable == nil || retryable(err)
	}
	return &Policy{
		name:    name,
		breaker: NewCircuitBreaker(name, cfg.Breaker),
		retry:   cfg.Retry,
		timeout: cfg.Timeout,
	}
}

// Do runs fn under the policy. op names the call in logs and errors.
func (p *Policy) Do(ctx context.Context, op string, idempotent bool, fn func(ctx context.Context) error) error {
	name := p.name + "." + op
	attempt := func(ctx context.Context) error {
		return p.breaker.Execute(func() error {
			return WithTimeout(ctx, p.timeout, name, fn)
		})
	}
	if !idempotent {
		return attempt(ctx)
	}
	return Retry(ctx, name, p.retry, attempt)
}

// State returns the breaker's state.
func (p *Policy) State() State {
	return p.breaker.GetState()
}
