// Package cache provides a Redis-backed query result cache with
// singleflight collapsing so identical concurrent queries share one
// computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/docusage-ai/search-platform/internal/searcher"
	"github.com/docusage-ai/search-platform/pkg/config"
	"github.com/docusage-ai/search-platform/pkg/metrics"
	pkgredis "github.com/docusage-ai/search-platform/pkg/redis"
)

const keyPrefix = "search:"

// QueryCache memoizes ranked result lists per normalized query.
type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	hits    atomic.Int64
	misses  atomic.Int64
}

// New builds a QueryCache on top of a Redis client.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		logger:  slog.Default().With("component", "query-cache"),
		metrics: m,
	}
}

// Get returns the cached results for a query, if present.
func (c *QueryCache) Get(ctx context.Context, query string, opts searcher.Options) ([]searcher.SearchResult, bool) {
	key := c.buildKey(query, opts)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var results []searcher.SearchResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	return results, true
}

// Set stores results under the query's cache key with the configured TTL.
func (c *QueryCache) Set(ctx context.Context, query string, opts searcher.Options, results []searcher.SearchResult) {
	key := c.buildKey(query, opts)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached results or runs computeFn once per key,
// even under concurrent identical queries. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	opts searcher.Options,
	computeFn func() ([]searcher.SearchResult, error),
) ([]searcher.SearchResult, bool, error) {
	if results, ok := c.Get(ctx, query, opts); ok {
		return results, true, nil
	}
	key := c.buildKey(query, opts)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if results, ok := c.Get(ctx, query, opts); ok {
			return results, nil
		}
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, opts, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]searcher.SearchResult), false, nil
}

// Invalidate drops every cached query result. Called when any document
// changes, since every cached list may be stale.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats reports hit and miss counters since startup.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *QueryCache) buildKey(query string, opts searcher.Options) string {
	// ThresholdSet is part of the key: an explicit threshold of 0 and an
	// unset one (which falls back to the configured default) produce
	// different result lists for the same query.
	raw := fmt.Sprintf("%s|limit=%d|threshold=%g|explicit=%t|mode=%d",
		NormalizeQuery(query), opts.Limit, opts.Threshold, opts.ThresholdSet, opts.Mode)
	sum := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, sum[:16])
}

// NormalizeQuery lowercases and sorts query terms so reordered queries
// share a cache entry.
func NormalizeQuery(query string) string {
	terms := strings.Fields(strings.ToLower(query))
	sort.Strings(terms)
	return strings.Join(terms, ",")
}
