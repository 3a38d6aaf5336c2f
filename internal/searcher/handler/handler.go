// Package handler exposes the search service over HTTP: corpus search,
// document-scoped search, similar-document lookup, index stats, and
// query cache administration.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/docusage-ai/search-platform/internal/searcher"
	"github.com/docusage-ai/search-platform/internal/searcher/cache"
	apperrors "github.com/docusage-ai/search-platform/pkg/errors"
	"github.com/docusage-ai/search-platform/pkg/logger"
	"github.com/docusage-ai/search-platform/pkg/metrics"
	"github.com/docusage-ai/search-platform/pkg/tracing"
)

// Searcher is the service surface the handler depends on.
type Searcher interface {
	Search(ctx context.Context, query string, opts searcher.Options) ([]searcher.SearchResult, error)
	SearchWithinDocument(ctx context.Context, documentID, query string, opts searcher.Options) ([]searcher.SearchResult, error)
	FindSimilar(documentID string, k int) ([]searcher.SearchResult, error)
	Stats() searcher.Stats
}

// Handler serves the search HTTP API.
type Handler struct {
	svc     Searcher
	cache   *cache.QueryCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds a Handler. The query cache may be nil, disabling caching.
func New(svc Searcher, queryCache *cache.QueryCache, m *metrics.Metrics) *Handler {
	return &Handler{
		svc:     svc,
		cache:   queryCache,
		metrics: m,
		logger:  slog.Default().With("component", "search-handler"),
	}
}

// Register wires the handler's routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /search", h.Search)
	mux.HandleFunc("GET /documents/{id}/search", h.SearchWithinDocument)
	mux.HandleFunc("GET /documents/{id}/similar", h.FindSimilar)
	mux.HandleFunc("GET /stats", h.Stats)
	mux.HandleFunc("GET /cache/stats", h.CacheStats)
	mux.HandleFunc("POST /cache/invalidate", h.CacheInvalidate)
}

type searchResponse struct {
	Query   string                  `json:"query"`
	Total   int                     `json:"total"`
	Results []searcher.SearchResult `json:"results"`
}

// Search handles GET /search?q=...&limit=...&threshold=...&mode=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	ctx, span := tracing.Start(ctx, "http-search", logger.RequestID(ctx))
	defer func() {
		span.End()
		span.Emit()
	}()

	query := r.URL.Query().Get("q")
	opts, err := parseOptions(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var results []searcher.SearchResult
	cacheHit := false
	if h.cache != nil {
		results, cacheHit, err = h.cache.GetOrCompute(ctx, query, opts, func() ([]searcher.SearchResult, error) {
			return h.svc.Search(ctx, query, opts)
		})
	} else {
		results, err = h.svc.Search(ctx, query, opts)
	}
	if err != nil {
		h.observe(opts, nil, err)
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	h.observe(opts, results, nil)
	if h.metrics != nil {
		status := "miss"
		if cacheHit {
			status = "hit"
		}
		h.metrics.SearchLatency.WithLabelValues(status).Observe(latency.Seconds())
	}
	log.Info("search completed",
		"query", query,
		"returned", len(results),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, searchResponse{Query: query, Total: len(results), Results: results})
}

// SearchWithinDocument handles GET /documents/{id}/search?q=...
func (h *Handler) SearchWithinDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	query := r.URL.Query().Get("q")
	opts, err := parseOptions(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	results, err := h.svc.SearchWithinDocument(r.Context(), documentID, query, opts)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, searchResponse{Query: query, Total: len(results), Results: results})
}

// FindSimilar handles GET /documents/{id}/similar?k=...
func (h *Handler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, fmt.Errorf("%w: k must be a positive integer", apperrors.ErrInvalidInput))
			return
		}
		k = parsed
	}
	results, err := h.svc.FindSimilar(documentID, k)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, searchResponse{Total: len(results), Results: results})
}

// Stats handles GET /stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.Stats())
}

// CacheStats handles GET /cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching disabled"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) observe(opts searcher.Options, results []searcher.SearchResult, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(modeLabel(opts.Mode), outcome).Inc()
	if err == nil {
		h.metrics.SearchResultsCount.Observe(float64(len(results)))
	}
}

func modeLabel(m searcher.Mode) string {
	switch m {
	case searcher.ModeSemantic:
		return "semantic"
	case searcher.ModeKeyword:
		return "keyword"
	default:
		return "hybrid"
	}
}

func parseOptions(r *http.Request) (searcher.Options, error) {
	var opts searcher.Options
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return opts, fmt.Errorf("%w: limit must be a positive integer", apperrors.ErrInvalidInput)
		}
		opts.Limit = limit
	}
	if raw := q.Get("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold < 0 || threshold > 1 {
			return opts, fmt.Errorf("%w: threshold must be in [0,1]", apperrors.ErrInvalidInput)
		}
		opts.Threshold = threshold
		opts.ThresholdSet = true
	}
	switch q.Get("mode") {
	case "", "hybrid":
		opts.Mode = searcher.ModeHybrid
	case "semantic":
		opts.Mode = searcher.ModeSemantic
	case "keyword":
		opts.Mode = searcher.ModeKeyword
	default:
		return opts, fmt.Errorf("%w: mode must be hybrid, semantic, or keyword", apperrors.ErrInvalidInput)
	}
	return opts, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response encoding failed", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= 500 {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
