package benchmark

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"testing"

	"github.com/docusage-ai/search-platform/internal/embedding"
	"github.com/docusage-ai/search-platform/internal/searcher"
	"github.com/docusage-ai/search-platform/internal/searcher/fusion"
	"github.com/docusage-ai/search-platform/pkg/config"
)

// BenchmarkFusionMerge measures score fusion for different candidate list
// sizes with heavy overlap between the two channels.
func BenchmarkFusionMerge(b *testing.B) {
	sizes := []int{10, 100, 1000}
	w := fusion.Weights{Semantic: 0.8, Keyword: 0.6}
	for _, n := range sizes {
		semantic := make([]fusion.Candidate, n)
		kw := make([]fusion.Candidate, n)
		for i := 0; i < n; i++ {
			semantic[i] = fusion.Candidate{
				DocumentID: fmt.Sprintf("doc-%d", i),
				ChunkID:    fmt.Sprintf("doc-%d-0", i),
				Score:      1 - float64(i)/float64(n),
			}
			// Half the keyword candidates hit the same documents.
			kw[i] = fusion.Candidate{
				DocumentID: fmt.Sprintf("doc-%d", i/2),
				ChunkID:    fmt.Sprintf("doc-%d-1", i/2),
				Score:      1 - float64(i)/float64(n),
			}
		}
		b.Run(fmt.Sprintf("candidates_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				merged := fusion.Merge(semantic, kw, w, 10, 0)
				_ = merged
			}
		})
	}
}

// hashGateway produces deterministic unit vectors from text, standing in
// for a remote embedding provider.
type hashGateway struct{ dim int }

func (g hashGateway) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	vec := make([]float32, g.dim)
	for i := range vec {
		vec[i] = float32(rng.NormFloat64())
	}
	embedding.Normalize(vec)
	return vec, nil
}

func (g hashGateway) Dimension() int { return g.dim }

func benchConfig() config.SearchConfig {
	return config.SearchConfig{
		DefaultLimit:   10,
		MaxResults:     100,
		Threshold:      0,
		SemanticWeight: 0.8,
		KeywordWeight:  0.6,
		ChunkSize:      1000,
		ChunkOverlap:   200,
	}
}

// BenchmarkServiceSearch measures end-to-end hybrid search latency across
// pre-indexed corpora of increasing size.
func BenchmarkServiceSearch(b *testing.B) {
	terms := []string{"hybrid", "search", "embedding", "ranking", "chunking", "fusion", "indexing", "caching"}
	sizes := []int{100, 1000}
	for _, numDocs := range sizes {
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			svc := searcher.New(benchConfig(), hashGateway{dim: 64}, nil)
			ctx := context.Background()
			for i := 0; i < numDocs; i++ {
				doc := searcher.Document{
					ID:    fmt.Sprintf("doc-%d", i),
					Title: fmt.Sprintf("document about %s", terms[i%len(terms)]),
					FullText: fmt.Sprintf("this document covers %s %s %s in production retrieval systems",
						terms[i%len(terms)], terms[(i+2)%len(terms)], terms[(i+3)%len(terms)]),
				}
				if err := svc.AddDocument(ctx, doc); err != nil {
					b.Fatal(err)
				}
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				results, err := svc.Search(ctx, terms[i%len(terms)], searcher.Options{Limit: 10})
				if err != nil {
					b.Fatal(err)
				}
				_ = results
			}
		})
	}
}

// BenchmarkServiceAddDocument measures full indexing throughput, chunking
// and embedding included.
func BenchmarkServiceAddDocument(b *testing.B) {
	svc := searcher.New(benchConfig(), hashGateway{dim: 64}, nil)
	ctx := context.Background()
	body := "hybrid retrieval fuses semantic and keyword scores so literal matches stay competitive with embedding similarity"

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		doc := searcher.Document{
			ID:       fmt.Sprintf("doc-%d", i),
			Title:    "benchmark document",
			FullText: body,
		}
		if err := svc.AddDocument(ctx, doc); err != nil {
			b.Fatal(err)
		}
	}
}
