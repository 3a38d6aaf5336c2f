package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/docusage-ai/search-platform/internal/docstore"
	"github.com/docusage-ai/search-platform/internal/searcher"
	"github.com/docusage-ai/search-platform/pkg/kafka"
	"github.com/docusage-ai/search-platform/pkg/resilience"
)

// Indexer is the searcher surface the consumer drives.
type Indexer interface {
	AddDocument(ctx context.Context, doc searcher.Document) error
	RemoveDocument(documentID string)
	ChunkCount(documentID string) int
}

// StatusPublisher reports per-document indexing outcomes. May be nil
// when status reporting is disabled.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, ev StatusEvent) error
}

// Invalidator clears cached query results after index mutations. May be
// nil when caching is disabled.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Consumer processes document events: it updates the backing store's
// status machine, mutates the indexes, invalidates the query cache, and
// reports outcomes on the index-status topic.
type Consumer struct {
	svc       Indexer
	store     *docstore.Store
	publisher StatusPublisher
	cache     Invalidator
	logger    *slog.Logger
}

// NewConsumer wires the ingest pipeline stages together.
func NewConsumer(svc Indexer, store *docstore.Store, publisher StatusPublisher, cache Invalidator) *Consumer {
	return &Consumer{
		svc:       svc,
		store:     store,
		publisher: publisher,
		cache:     cache,
		logger:    slog.Default().With("component", "ingest-consumer"),
	}
}

// Handle is the kafka.Handler entry point. Validation failures and
// per-document indexing failures are logged and acknowledged rather than
// redelivered forever; only transient infrastructure errors propagate.
func (c *Consumer) Handle(ctx context.Context, _, value []byte) error {
	ev, err := kafka.DecodeJSON[DocumentEvent](value)
	if err != nil {
		c.logger.Error("dropping undecodable event", "error", err)
		return nil
	}
	if err := Validate(ev); err != nil {
		c.logger.Warn("dropping invalid event", "document_id", ev.DocumentID, "error", err)
		return nil
	}

	switch ev.Op {
	case OpDelete:
		return c.handleDelete(ctx, ev)
	default:
		return c.handleUpsert(ctx, ev)
	}
}

func (c *Consumer) handleUpsert(ctx context.Context, ev DocumentEvent) error {
	rec := docstore.Record{
		ID:            ev.DocumentID,
		Title:         ev.Title,
		ExtractedText: ev.ExtractedText,
		OCRText:       ev.OCRText,
		Summary:       ev.Summary,
		Status:        docstore.StatusIndexing,
	}
	if c.store != nil {
		if err := c.store.Upsert(ctx, rec); err != nil {
			return err
		}
	}

	doc := searcher.Document{
		ID:       ev.DocumentID,
		Title:    ev.Title,
		FullText: rec.FullText(),
		Summary:  ev.Summary,
	}
	status := docstore.StatusReady
	var indexErr error
	if indexErr = c.svc.AddDocument(ctx, doc); indexErr != nil {
		status = docstore.StatusFailed
		c.logger.Error("indexing failed", "document_id", ev.DocumentID, "error", indexErr)
	}

	if c.store != nil {
		if err := c.store.UpdateStatus(ctx, ev.DocumentID, status); err != nil {
			c.logger.Error("status update failed", "document_id", ev.DocumentID, "error", err)
		}
	}
	c.invalidate(ctx)
	c.publishStatus(ctx, ev.DocumentID, status, c.svc.ChunkCount(ev.DocumentID), indexErr)
	return nil
}

func (c *Consumer) handleDelete(ctx context.Context, ev DocumentEvent) error {
	c.svc.RemoveDocument(ev.DocumentID)
	if c.store != nil {
		if err := c.store.Delete(ctx, ev.DocumentID); err != nil {
			return err
		}
	}
	c.invalidate(ctx)
	c.publishStatus(ctx, ev.DocumentID, "removed", 0, nil)
	return nil
}

func (c *Consumer) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		c.logger.Warn("query cache invalidation failed", "error", err)
	}
}

func (c *Consumer) publishStatus(ctx context.Context, documentID, status string, chunks int, cause error) {
	if c.publisher == nil {
		return
	}
	ev := StatusEvent{
		DocumentID: documentID,
		Status:     status,
		Chunks:     chunks,
		Timestamp:  time.Now().UTC(),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	err := resilience.Retry(ctx, "publish-index-status", resilience.RetryPolicy{MaxAttempts: 3},
		func(ctx context.Context) error {
			return c.publisher.PublishStatus(ctx, ev)
		})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		c.logger.Error("status publish failed", "document_id", documentID, "error", err)
	}
}
