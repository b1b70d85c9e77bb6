// Package tracing records lightweight spans through contexts. A request's
// root span collects its child spans and is logged as one tree via slog
// when the request finishes.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span represents a timed operation within a trace.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any
	Err       error
	mu        sync.Mutex
}

// StartSpan creates a new root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	span := &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChildSpan creates a child span linked to the parent in ctx. Without
// a parent the child is a detached root.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	child := &Span{
		Name:      name,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}

	if parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}

	return context.WithValue(ctx, contextKey{}, child), child
}

// Run executes fn inside a child span named name and records its error.
func Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := StartChildSpan(ctx, name)
	err := fn(ctx)
	span.EndWithError(err)
	return err
}

// End records the span's duration.
func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.StartTime)
	s.mu.Unlock()
}

// EndWithError ends the span and keeps err for the log.
func (s *Span) EndWithError(err error) {
	s.mu.Lock()
	s.Err = err
	s.mu.Unlock()
	s.End()
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(contextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// Log writes the span tree to logger at debug level.
func (s *Span) Log(logger *slog.Logger) {
	s.logRecursive(logger, 0)
}

func (s *Span) logRecursive(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"depth", depth,
	}
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	if s.Err != nil {
		attrs = append(attrs, "error", s.Err)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	logger.Debug("span", attrs...)
	for _, child := range children {
		child.logRecursive(logger, depth+1)
	}
}
