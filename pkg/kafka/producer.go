package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/docusage-ai/search-platform/pkg/config"
)

// Event is one message to publish. Key selects the partition so events
// for the same document stay ordered.
type Event struct {
	Key   string
	Value any
}

// Producer publishes JSON-encoded events to a single topic.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer builds a synchronous Producer for the given topic.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes a single event and waits for broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	msg := kafka.Message{Key: []byte(event.Key), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("publish failed", "key", event.Key, "error", err)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	return nil
}

// PublishBatch writes multiple events in one call.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		value, err := json.Marshal(ev.Value)
		if err != nil {
			return fmt.Errorf("marshaling event: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(ev.Key), Value: value})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("batch publish failed", "count", len(msgs), "error", err)
		return fmt.Errorf("publishing batch to kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
