// Command reindex republishes every ready document from the backing store
// onto the document-ingest topic, forcing the search service to rebuild
// its indexes for them. Useful after changing chunking or embedding
// settings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docusage-ai/search-platform/internal/docstore"
	"github.com/docusage-ai/search-platform/internal/ingest"
	"github.com/docusage-ai/search-platform/pkg/config"
	"github.com/docusage-ai/search-platform/pkg/kafka"
	"github.com/docusage-ai/search-platform/pkg/logger"
	"github.com/docusage-ai/search-platform/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "list documents without publishing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := docstore.New(db)

	records, err := store.ListReady(ctx)
	if err != nil {
		slog.Error("failed to list documents", "error", err)
		os.Exit(1)
	}
	slog.Info("found documents to reindex", "count", len(records))
	if *dryRun {
		for _, rec := range records {
			fmt.Printf("%s\t%s\n", rec.ID, rec.Title)
		}
		return
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	publisher := ingest.NewPublisher(producer, nil)
	defer publisher.Close()

	start := time.Now()
	published := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			slog.Warn("reindex interrupted", "published", published, "remaining", len(records)-published)
			os.Exit(1)
		}
		ev := ingest.DocumentEvent{
			DocumentID:    rec.ID,
			Title:         rec.Title,
			ExtractedText: rec.ExtractedText,
			OCRText:       rec.OCRText,
			Summary:       rec.Summary,
			Op:            ingest.OpUpsert,
			IngestedAt:    time.Now().UTC(),
		}
		if err := publisher.PublishDocument(ctx, ev); err != nil {
			slog.Error("failed to publish document", "document_id", rec.ID, "error", err)
			os.Exit(1)
		}
		published++
	}

	slog.Info("reindex complete", "published", published, "elapsed", time.Since(start).Round(time.Millisecond))
}
