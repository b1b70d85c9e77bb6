// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Values travel as JSON; the consumer hands each
// message to a MessageHandler callback.
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

// Producer publishes JSON-encoded values to one topic. Messages sharing a
// key land on the same partition.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Producer for the given topic.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish serialises value and writes it synchronously under key.
func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling event value: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		p.logger.Error("failed to publish message", "key", key, "error", err)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("message published", "key", key, "value_size", len(data))
	return nil
}

// Close flushes pending writes and closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
