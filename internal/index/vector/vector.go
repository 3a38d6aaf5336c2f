// Package vector implements a flat in-memory vector index with
// brute-force k-nearest-neighbor queries over squared Euclidean distance.
// Callers must insert unit-normalized vectors for the derived relevance
// score (1 - distance/2) to stay within [0,1].
package vector

import (
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/docusage-ai/search-platform/pkg/errors"
)

// Entry is one chunk vector in the index.
type Entry struct {
	ChunkID    string
	DocumentID string
	Vector     []float32
}

// Neighbor is a query hit, ordered by ascending distance.
type Neighbor struct {
	ChunkID    string
	DocumentID string
	Distance   float64
}

// Index is a thread-safe flat vector index of fixed dimension.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries []Entry
	byDoc   map[string][]int
}

// New creates an Index for vectors of the given dimension.
func New(dim int) *Index {
	return &Index{dim: dim, byDoc: make(map[string][]int)}
}

// Dimension returns the fixed vector dimension.
func (idx *Index) Dimension() int {
	return idx.dim
}

// Add inserts a chunk vector. The vector length must match the index
// dimension.
func (idx *Index) Add(chunkID, documentID string, vec []float32) error {
	if len(vec) != idx.dim {
		return fmt.Errorf("%w: got %d, index expects %d",
			apperrors.ErrDimensionMismatch, len(vec), idx.dim)
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byDoc[documentID] = append(idx.byDoc[documentID], len(idx.entries))
	idx.entries = append(idx.entries, Entry{ChunkID: chunkID, DocumentID: documentID, Vector: vec})
	return nil
}

// Query returns the k nearest entries by squared Euclidean distance,
// ascending. An empty index yields an empty result, not an error.
func (idx *Index) Query(vec []float32, k int) ([]Neighbor, error) {
	if len(vec) != idx.dim {
		return nil, fmt.Errorf("%w: query has %d, index expects %d",
			apperrors.ErrDimensionMismatch, len(vec), idx.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	neighbors := make([]Neighbor, 0, len(idx.entries))
	for _, e := range idx.entries {
		neighbors = append(neighbors, Neighbor{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Distance:   squaredEuclidean(vec, e.Vector),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].ChunkID < neighbors[j].ChunkID
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// QueryWithin scans only documentID's entries, for document-scoped
// search. Results are ordered like Query.
func (idx *Index) QueryWithin(documentID string, vec []float32, k int) ([]Neighbor, error) {
	if len(vec) != idx.dim {
		return nil, fmt.Errorf("%w: query has %d, index expects %d",
			apperrors.ErrDimensionMismatch, len(vec), idx.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	positions := idx.byDoc[documentID]
	neighbors := make([]Neighbor, 0, len(positions))
	for _, p := range positions {
		e := idx.entries[p]
		neighbors = append(neighbors, Neighbor{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Distance:   squaredEuclidean(vec, e.Vector),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].ChunkID < neighbors[j].ChunkID
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Remove drops every entry belonging to documentID. Unknown documents
// are a no-op. The flat slice is rebuilt, which is O(n) and acceptable
// at document-corpus scale.
func (idx *Index) Remove(documentID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.byDoc[documentID]; !ok {
		return
	}
	kept := make([]Entry, 0, len(idx.entries))
	byDoc := make(map[string][]int, len(idx.byDoc))
	for _, e := range idx.entries {
		if e.DocumentID == documentID {
			continue
		}
		byDoc[e.DocumentID] = append(byDoc[e.DocumentID], len(kept))
		kept = append(kept, e)
	}
	idx.entries = kept
	idx.byDoc = byDoc
}

// FirstVector returns the vector of the document's lowest-indexed chunk,
// for similar-document queries. The second return is false when the
// document has no embedded chunks.
func (idx *Index) FirstVector(documentID string) ([]float32, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	positions, ok := idx.byDoc[documentID]
	if !ok || len(positions) == 0 {
		return nil, false
	}
	first := positions[0]
	for _, p := range positions[1:] {
		if p < first {
			first = p
		}
	}
	vec := make([]float32, idx.dim)
	copy(vec, idx.entries[first].Vector)
	return vec, true
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Score converts a squared Euclidean distance between unit vectors into
// a similarity in [0,1].
func Score(distance float64) float64 {
	s := 1 - distance/2
	if s < 0 {
		return 0
	}
	return s
}

func squaredEuclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
