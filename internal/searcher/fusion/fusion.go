// Package fusion merges semantic and keyword retrieval channels into one
// ranked list per document. Fusion is weighted-max rather than sum so a
// document present in both candidate sets cannot outrank a strong single-
// channel match purely by being present twice; corroboration is instead
// reported through the hybrid search type tag.
package fusion

import "sort"

// SearchType tags which retrieval channel produced a result.
type SearchType string

const (
	TypeSemantic SearchType = "semantic"
	TypeKeyword  SearchType = "keyword"
	TypeHybrid   SearchType = "hybrid"
)

// Candidate is one channel hit, already scored in [0,1].
type Candidate struct {
	DocumentID string
	ChunkID    string
	Score      float64
}

// Merged is a per-document fusion outcome. ChunkID points at the best
// scoring chunk so callers can fetch content for display.
type Merged struct {
	DocumentID string
	ChunkID    string
	Score      float64
	SearchType SearchType
}

// Weights scales each channel's raw scores before fusion.
type Weights struct {
	Semantic float64
	Keyword  float64
}

// Merge combines both channels by document ID. Each candidate's score is
// scaled by its channel weight; a document seen in both channels keeps
// the maximum of its weighted scores and is tagged hybrid. Results are
// sorted by score descending, semantic-first on ties, then truncated to
// limit and filtered by threshold.
func Merge(semantic, keyword []Candidate, w Weights, limit int, threshold float64) []Merged {
	byDoc := make(map[string]*Merged)
	order := make([]string, 0, len(semantic)+len(keyword))

	absorb := func(cands []Candidate, weight float64, typ SearchType) {
		for _, c := range cands {
			weighted := c.Score * weight
			m, ok := byDoc[c.DocumentID]
			if !ok {
				byDoc[c.DocumentID] = &Merged{
					DocumentID: c.DocumentID,
					ChunkID:    c.ChunkID,
					Score:      weighted,
					SearchType: typ,
				}
				order = append(order, c.DocumentID)
				continue
			}
			if m.SearchType != typ {
				m.SearchType = TypeHybrid
			}
			if weighted > m.Score {
				m.Score = weighted
				m.ChunkID = c.ChunkID
			}
		}
	}
	absorb(semantic, w.Semantic, TypeSemantic)
	absorb(keyword, w.Keyword, TypeKeyword)

	merged := make([]Merged, 0, len(order))
	for _, docID := range order {
		merged = append(merged, *byDoc[docID])
	}
	// Insertion order puts semantic candidates first, so a stable sort
	// keeps semantic results ahead of keyword results on equal scores.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	out := merged[:0]
	for _, m := range merged {
		if m.Score >= threshold {
			out = append(out, m)
		}
	}
	return out
}
