// Package kafka wraps segmentio/kafka-go with JSON producers and a
// handler-driven consumer loop used for document ingest and index-status
// events.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/docusage-ai/search-platform/pkg/config"
)

// Handler is invoked for each fetched message. A non-nil error skips the
// commit so the message is redelivered.
type Handler func(ctx context.Context, key, value []byte) error

// Consumer reads a topic and dispatches messages to a Handler.
type Consumer struct {
	reader  *kafka.Reader
	handler Handler
	logger  *slog.Logger
}

// NewConsumer builds a Consumer for the given topic within the configured
// consumer group.
func NewConsumer(cfg config.KafkaConfig, topic string, handler Handler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return &Consumer{
		reader:  r,
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Run fetches and processes messages until ctx is cancelled. Messages are
// committed only after the handler returns nil.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.logger.Error("fetch failed", "error", err)
			continue
		}
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("handler failed",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
