package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docusage-ai/search-platform/internal/docstore"
	"github.com/docusage-ai/search-platform/internal/searcher"
)

// Rebuild loads every ready document from the backing store into the
// indexes, with bounded parallelism. Individual document failures are
// logged and skipped so one bad document cannot block startup.
func Rebuild(ctx context.Context, store *docstore.Store, svc Indexer, workers int) error {
	logger := slog.Default().With("component", "rebuild")
	start := time.Now()

	records, err := store.ListReady(ctx)
	if err != nil {
		return fmt.Errorf("loading documents for rebuild: %w", err)
	}

	if workers <= 0 {
		workers = 8
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, rec := range records {
		g.Go(func() error {
			doc := searcher.Document{
				ID:       rec.ID,
				Title:    rec.Title,
				FullText: rec.FullText(),
				Summary:  rec.Summary,
			}
			if err := svc.AddDocument(gctx, doc); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("rebuild skipped document", "document_id", rec.ID, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rebuild aborted: %w", err)
	}

	logger.Info("index rebuild complete",
		"documents", len(records),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
