package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/docusage-ai/search-platform/internal/docstore"
	"github.com/docusage-ai/search-platform/internal/embedding"
	"github.com/docusage-ai/search-platform/internal/ingest"
	"github.com/docusage-ai/search-platform/internal/searcher"
	"github.com/docusage-ai/search-platform/internal/searcher/cache"
	"github.com/docusage-ai/search-platform/internal/searcher/handler"
	"github.com/docusage-ai/search-platform/pkg/config"
	"github.com/docusage-ai/search-platform/pkg/health"
	"github.com/docusage-ai/search-platform/pkg/kafka"
	"github.com/docusage-ai/search-platform/pkg/logger"
	"github.com/docusage-ai/search-platform/pkg/metrics"
	"github.com/docusage-ai/search-platform/pkg/middleware"
	"github.com/docusage-ai/search-platform/pkg/postgres"
	pkgredis "github.com/docusage-ai/search-platform/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := docstore.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure document schema", "error", err)
		os.Exit(1)
	}
	slog.Info("document store ready", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis, m)
		slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	gateway := embedding.NewCachedGateway(
		embedding.NewOpenAIGateway(cfg.Embedding, m),
		cfg.Embedding.CacheSize,
	)
	svc := searcher.New(cfg.Search, gateway, m)

	if err := ingest.Rebuild(ctx, store, svc, cfg.Search.RebuildWorkers); err != nil {
		slog.Error("index rebuild failed", "error", err)
		os.Exit(1)
	}
	slog.Info("index rebuilt", "documents", svc.DocumentCount())

	statusProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexStatus)
	publisher := ingest.NewPublisher(nil, statusProducer)
	defer publisher.Close()

	// A nil *QueryCache must stay a nil interface inside the consumer.
	var invalidator ingest.Invalidator
	if queryCache != nil {
		invalidator = queryCache
	}
	ingestConsumer := ingest.NewConsumer(svc, store, publisher, invalidator)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, ingestConsumer.Handle)
	defer consumer.Close()
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("ingest consumer stopped", "error", err)
		}
	}()
	slog.Info("ingest consumer started", "topic", cfg.Kafka.Topics.DocumentIngest)

	checker := health.NewChecker()
	checker.Register("postgres", db.Ping)
	if redisClient != nil {
		checker.Register("redis", redisClient.Ping)
	}

	h := handler.New(svc, queryCache, m)
	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
