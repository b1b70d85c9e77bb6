// Package events announces index changes. With Kafka enabled every change
// is published to the index-events topic and consumers invalidate their
// search caches; without it the change invalidates the local cache directly.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/kafka"
)

const (
	TypeIndexed = "document.indexed"
	TypeDeleted = "document.deleted"
)

// IndexEvent describes one change to the index.
type IndexEvent struct {
	Type       string    `json:"type"`
	StorageKey string    `json:"storage_key"`
	Digest     string    `json:"digest,omitempty"`
	Keywords   int       `json:"keywords"`
	At         time.Time `json:"at"`
}

// Publisher announces index events.
type Publisher interface {
	Publish(ctx context.Context, ev IndexEvent) error
}

// Invalidator drops cached search results. *search.Service implements it.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Sender writes a keyed JSON value. *kafka.Producer implements it.
type Sender interface {
	Publish(ctx context.Context, key string, value any) error
}

// KafkaPublisher sends events keyed by storage key so that events for the
// same document stay ordered.
type KafkaPublisher struct {
	sender Sender
}

func NewKafkaPublisher(sender Sender) *KafkaPublisher {
	return &KafkaPublisher{sender: sender}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev IndexEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := p.sender.Publish(ctx, ev.StorageKey, ev); err != nil {
		return fmt.Errorf("publishing %s for %s: %w", ev.Type, ev.StorageKey, err)
	}
	return nil
}

// LocalPublisher applies events in-process.
type LocalPublisher struct {
	cache  Invalidator
	logger *slog.Logger
}

func NewLocalPublisher(cache Invalidator) *LocalPublisher {
	return &LocalPublisher{
		cache:  cache,
		logger: slog.Default().With("component", "events"),
	}
}

func (p *LocalPublisher) Publish(ctx context.Context, ev IndexEvent) error {
	p.logger.Debug("index event", "type", ev.Type, "storage_key", ev.StorageKey)
	if p.cache == nil {
		return nil
	}
	return p.cache.Invalidate(ctx)
}

// HandleIndexEvent returns a consumer handler that invalidates cache for
// every well-formed event.
func HandleIndexEvent(cache Invalidator) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-event-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[IndexEvent](value)
		if err != nil {
			// Poison messages are logged and skipped so the offset advances.
			logger.Warn("dropping malformed index event", "key", string(key), "error", err)
			return nil
		}
		switch ev.Type {
		case TypeIndexed, TypeDeleted:
		default:
			logger.Warn("ignoring unknown index event", "type", ev.Type, "storage_key", ev.StorageKey)
			return nil
		}
		if err := cache.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidating after %s: %w", ev.Type, err)
		}
		logger.Debug("search cache invalidated", "type", ev.Type, "storage_key", ev.StorageKey)
		return nil
	}
}
