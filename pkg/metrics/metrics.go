// Package metrics defines the Prometheus metric collectors used by the
// search service and exposes an HTTP server for scraping.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the search service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SearchQueriesTotal *prometheus.CounterVec
	SearchLatency      *prometheus.HistogramVec
	SearchResultsCount prometheus.Histogram

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	DocsIndexedTotal       prometheus.Counter
	DocsRemovedTotal       prometheus.Counter
	ChunksEmbeddedTotal    prometheus.Counter
	EmbeddingFailuresTotal *prometheus.CounterVec
	EmbeddingLatency       prometheus.Histogram

	IndexedDocuments    prometheus.Gauge
	VectorEntries       prometheus.Gauge
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by search type (hybrid, semantic, keyword) and outcome.",
			},
			[]string{"search_type", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "documents_indexed_total",
				Help: "Total documents indexed.",
			},
		),
		DocsRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "documents_removed_total",
				Help: "Total documents removed from the indexes.",
			},
		),
		ChunksEmbeddedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chunks_embedded_total",
				Help: "Total chunks successfully embedded.",
			},
		),
		EmbeddingFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "embedding_failures_total",
				Help: "Total embedding failures by reason (timeout, unavailable, other).",
			},
			[]string{"reason"},
		),
		EmbeddingLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "embedding_latency_seconds",
				Help:    "Embedding provider call latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_documents",
				Help: "Number of documents currently indexed.",
			},
		),
		VectorEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "vector_index_entries",
				Help: "Number of chunk vectors currently in the vector index.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.DocsRemovedTotal,
		m.ChunksEmbeddedTotal,
		m.EmbeddingFailuresTotal,
		m.EmbeddingLatency,
		m.IndexedDocuments,
		m.VectorEntries,
		m.CircuitBreakerState,
	)

	return m
}
