// Package health reports whether the indexer can serve traffic. Backing
// stores are pinged concurrently under a per-check timeout; dictionaries are
// recorded once at startup. A required dependency that fails takes the
// service down, an optional one only degrades it.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

const DefaultCheckTimeout = 2 * time.Second

// PingFunc reports whether a dependency answers.
type PingFunc func(ctx context.Context) error

// ComponentHealth is the state of one dependency or dictionary.
type ComponentHealth struct {
	Status   Status `json:"status"`
	Required bool   `json:"required"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

// Report is the aggregated readiness of the indexer.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Uptime     string                     `json:"uptime"`
	Timestamp  string                     `json:"timestamp"`
}

type dependency struct {
	ping     PingFunc
	required bool
}

// Checker holds the registered dependencies and the fixed components.
type Checker struct {
	mu      sync.RWMutex
	deps    map[string]dependency
	static  map[string]ComponentHealth
	timeout time.Duration
	started time.Time
	last    Status
	logger  *slog.Logger
}

// NewChecker returns a Checker whose pings each get checkTimeout; zero
// selects DefaultCheckTimeout.
func NewChecker(checkTimeout time.Duration) *Checker {
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return &Checker{
		deps:    make(map[string]dependency),
		static:  make(map[string]ComponentHealth),
		timeout: checkTimeout,
		started: time.Now(),
		logger:  slog.Default().With("component", "health"),
	}
}

// Add registers a dependency pinged on every readiness check.
func (c *Checker) Add(name string, ping PingFunc, required bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps[name] = dependency{ping: ping, required: required}
}

// Dictionary records whether an optional dictionary was loaded. A missing
// one degrades the service: documents still index, with less normalisation.
func (c *Checker) Dictionary(name string, loaded bool, detail string) {
	comp := ComponentHealth{Status: StatusUp, Message: detail}
	if !loaded {
		comp.Status = StatusDegraded
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.static[name] = comp
}

// Run pings every dependency concurrently. The overall status is the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	components := make(map[string]ComponentHealth, len(c.deps)+len(c.static))
	for name, comp := range c.static {
		components[name] = comp
	}
	deps := make(map[string]dependency, len(c.deps))
	for name, d := range c.deps {
		deps[name] = d
	}
	c.mu.RUnlock()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, d := range deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			comp := c.ping(ctx, d)
			mu.Lock()
			components[name] = comp
			mu.Unlock()
		}()
	}
	wg.Wait()

	report := Report{
		Status:     StatusUp,
		Components: components,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, comp := range components {
		if comp.Status == StatusDown {
			report.Status = StatusDown
			break
		}
		if comp.Status == StatusDegraded {
			report.Status = StatusDegraded
		}
	}
	c.noteTransition(report)
	return report
}

func (c *Checker) ping(ctx context.Context, d dependency) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := d.ping(ctx)
	comp := ComponentHealth{
		Status:   StatusUp,
		Required: d.required,
		Latency:  time.Since(start).Round(time.Millisecond).String(),
	}
	if err == nil {
		return comp
	}
	comp.Status = StatusDegraded
	if d.required {
		comp.Status = StatusDown
	}
	comp.Message = err.Error()
	if ctx.Err() != nil {
		comp.Message = fmt.Sprintf("no answer within %s: %v", c.timeout, err)
	}
	return comp
}

func (c *Checker) noteTransition(r Report) {
	c.mu.Lock()
	prev := c.last
	c.last = r.Status
	c.mu.Unlock()
	if prev == r.Status {
		return
	}
	failing := make([]string, 0)
	for name, comp := range r.Components {
		if comp.Status != StatusUp {
			failing = append(failing, name)
		}
	}
	if r.Status == StatusUp {
		c.logger.Info("service healthy", "previous", prev)
		return
	}
	c.logger.Warn("service health changed", "status", r.Status, "previous", prev, "failing", failing)
}

// LiveHandler answers liveness checks; it never touches dependencies.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"uptime": time.Since(c.started).Round(time.Second).String(),
		})
	}
}

// ReadyHandler answers readiness checks. Degraded still counts as ready.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}
