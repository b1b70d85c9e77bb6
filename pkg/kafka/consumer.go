package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/doc-indexer/pkg/config"
)

const (
	minFetchBackoff = 100 * time.Millisecond
	maxFetchBackoff = 5 * time.Second
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic and hands every message to a MessageHandler.
// A message is committed once handled, even when the handler fails, so a
// malformed event never blocks the partition.
type Consumer struct {
	reader  messageReader
	logger  *slog.Logger
	handler MessageHandler
}

// NewConsumer joins groupID on topic. Consumers sharing a group split the
// partitions, which suits a cache shared by every process. New groups start
// at the latest offset.
func NewConsumer(cfg config.KafkaConfig, topic, groupID string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    1e6,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(r, handler, slog.Default().With("component", "kafka-consumer", "topic", topic, "group", groupID))
}

func newConsumer(r messageReader, handler MessageHandler, logger *slog.Logger) *Consumer {
	return &Consumer{reader: r, logger: logger, handler: handler}
}

// Start runs the consume loop until ctx is cancelled, then closes the
// reader. Fetch errors back off exponentially up to five seconds.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()

	backoff := minFetchBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxFetchBackoff)
			continue
		}
		backoff = minFetchBackoff

		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Warn("message handler failed",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
