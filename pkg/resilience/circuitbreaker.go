// Package resilience wraps calls to remote dependencies with a circuit
// breaker, exponential-backoff retry and a per-call deadline. Policy
// composes the three.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the phase of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls failure thresholds and recovery timing.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	// OnStateChange is called after every transition, outside the lock.
	OnStateChange func(name string, state State)
	// IsFailure decides which errors count against the breaker. Nil counts
	// every non-nil error.
	IsFailure func(err error) bool
}

// CircuitBreaker opens after FailureThreshold consecutive failures, rejects
// calls for ResetTimeout, then lets HalfOpenMaxRequests trials through. One
// successful trial closes it; a failed trial reopens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trials   int
}

// NewCircuitBreaker fills zero config fields with defaults: five failures,
// thirty seconds, one trial.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

// Execute runs fn if the breaker admits it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	changed, err := cb.admit()
	cb.notify(changed)
	if err != nil {
		return err
	}
	err = fn()
	cb.notify(cb.record(err))
	return err
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	changed := cb.transition(StateClosed, "manual reset")
	cb.mu.Unlock()
	cb.notify(changed)
}

// admit reports a transition to notify, if any, and ErrCircuitOpen when the
// call must be rejected.
func (cb *CircuitBreaker) admit() (*State, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt)
		if wait > 0 {
			return nil, fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait)
		}
		changed := cb.transition(StateHalfOpen, "reset timeout elapsed")
		cb.trials = 1
		return changed, nil
	case StateHalfOpen:
		if cb.trials >= cb.cfg.HalfOpenMaxRequests {
			return nil, fmt.Errorf("%w: %s (half-open trial limit reached)", ErrCircuitOpen, cb.name)
		}
		cb.trials++
	}
	return nil, nil
}

func (cb *CircuitBreaker) record(err error) *State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil || (cb.cfg.IsFailure != nil && !cb.cfg.IsFailure(err)) {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			return cb.transition(StateClosed, "trial succeeded")
		}
		return nil
	}

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		return cb.transition(StateOpen, "trial failed")
	case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
		return cb.transition(StateOpen, "failure threshold reached")
	}
	return nil
}

// transition must be called with mu held. It returns the new state when it
// differs from the old one.
func (cb *CircuitBreaker) transition(to State, reason string) *State {
	if cb.state == to {
		return nil
	}
	from := cb.state
	cb.state = to
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
		cb.logger.Warn("circuit opened", "from", from, "reason", reason, "consecutive_failures", cb.failures)
	case StateHalfOpen:
		cb.trials = 0
		cb.logger.Info("circuit half-open", "reason", reason)
	case StateClosed:
		cb.failures = 0
		cb.trials = 0
		cb.logger.Info("circuit closed", "from", from, "reason", reason)
	}
	return &to
}

func (cb *CircuitBreaker) notify(changed *State) {
	if changed != nil && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, *changed)
	}
}
