// Package ratelimit is an in-memory token-bucket limiter keyed by caller.
package ratelimit

import (
	"sync"
	"time"
)

type entry struct {
	tokens    float64
	lastCheck time.Time
}

// Limiter refills each key at limit tokens per window.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	stop    sync.Once
}

// New creates a limiter and starts its cleanup loop. Call Stop to end it.
func New(window time.Duration) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		window:  window,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.cleanup(5 * time.Minute)
	return l
}

// Allow consumes one token for key and reports whether one was available.
// A non-positive limit disables limiting.
func (l *Limiter) Allow(key string, limit int) bool {
	if limit <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, exists := l.entries[key]
	if !exists {
		l.entries[key] = &entry{
			tokens:    float64(limit - 1),
			lastCheck: now,
		}
		return true
	}

	elapsed := now.Sub(e.lastCheck)
	e.lastCheck = now

	rate := float64(limit) / l.window.Seconds()
	e.tokens = min(e.tokens+elapsed.Seconds()*rate, float64(limit))
	if e.tokens < 1 {
		return false
	}
	e.tokens--
	return true
}

// Reset clears the state of key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Stop ends the cleanup loop.
func (l *Limiter) Stop() {
	l.stop.Do(func() { close(l.done) })
}

func (l *Limiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.evict()
		}
	}
}

func (l *Limiter) evict() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	for key, e := range l.entries {
		if e.lastCheck.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
