package ingest

import (
	"context"

	"github.com/docusage-ai/search-platform/pkg/kafka"
)

// Publisher writes document and status events to their topics.
type Publisher struct {
	documents *kafka.Producer
	status    *kafka.Producer
}

// NewPublisher wraps the two topic producers. Either may be nil, turning
// the corresponding publish into a no-op.
func NewPublisher(documents, status *kafka.Producer) *Publisher {
	return &Publisher{documents: documents, status: status}
}

// PublishDocument emits a DocumentEvent keyed by document ID so events
// for the same document stay in order.
func (p *Publisher) PublishDocument(ctx context.Context, ev DocumentEvent) error {
	if p.documents == nil {
		return nil
	}
	return p.documents.Publish(ctx, kafka.Event{Key: ev.DocumentID, Value: ev})
}

// PublishStatus emits a StatusEvent keyed by document ID.
func (p *Publisher) PublishStatus(ctx context.Context, ev StatusEvent) error {
	if p.status == nil {
		return nil
	}
	return p.status.Publish(ctx, kafka.Event{Key: ev.DocumentID, Value: ev})
}

// Close closes both producers.
func (p *Publisher) Close() error {
	var firstErr error
	for _, prod := range []*kafka.Producer{p.documents, p.status} {
		if prod == nil {
			continue
		}
		if err := prod.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
