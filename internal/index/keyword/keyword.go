// Package keyword implements an in-memory inverted index with BM25
// scoring over chunk text. Scores are squashed into [0,1) so they can be
// fused with vector similarity scores downstream.
package keyword

import (
	"math"
	"sort"
	"sync"

	"github.com/docusage-ai/search-platform/internal/index/tokenizer"
)

const (
	k1 = 1.2
	b  = 0.75
)

type posting struct {
	frequency int
	positions []int
}

// ScoredChunk is one search hit.
type ScoredChunk struct {
	ChunkID string
	Score   float64
}

// Index is a thread-safe inverted index keyed by chunk ID.
type Index struct {
	mu         sync.RWMutex
	terms      map[string]map[string]*posting
	chunkTerms map[string][]string
	chunkLens  map[string]int
	totalLen   int64
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		terms:      make(map[string]map[string]*posting),
		chunkTerms: make(map[string][]string),
		chunkLens:  make(map[string]int),
	}
}

// Add tokenizes text and indexes it under chunkID. Adding an existing
// chunk ID replaces its previous entry.
func (idx *Index) Add(chunkID, text string) {
	tokens := tokenizer.Tokenize(text)
	postings := make(map[string]*posting)
	for _, tok := range tokens {
		p, ok := postings[tok.Term]
		if !ok {
			p = &posting{positions: make([]int, 0, 4)}
			postings[tok.Term] = p
		}
		p.frequency++
		p.positions = append(p.positions, tok.Position)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(chunkID)

	termList := make([]string, 0, len(postings))
	for term, p := range postings {
		if _, ok := idx.terms[term]; !ok {
			idx.terms[term] = make(map[string]*posting)
		}
		idx.terms[term][chunkID] = p
		termList = append(termList, term)
	}
	idx.chunkTerms[chunkID] = termList
	idx.chunkLens[chunkID] = len(tokens)
	idx.totalLen += int64(len(tokens))
}

// Remove drops all postings for chunkID. Unknown IDs are a no-op.
func (idx *Index) Remove(chunkID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(chunkID)
}

func (idx *Index) removeLocked(chunkID string) {
	termList, ok := idx.chunkTerms[chunkID]
	if !ok {
		return
	}
	for _, term := range termList {
		delete(idx.terms[term], chunkID)
		if len(idx.terms[term]) == 0 {
			delete(idx.terms, term)
		}
	}
	idx.totalLen -= int64(idx.chunkLens[chunkID])
	delete(idx.chunkTerms, chunkID)
	delete(idx.chunkLens, chunkID)
}

// Search scores all chunks containing query terms with BM25 and returns
// up to limit hits by descending score. An empty query or a query whose
// terms are all unknown returns no hits.
func (idx *Index) Search(query string, limit int) []ScoredChunk {
	queryTerms := tokenizer.Terms(query)
	if len(queryTerms) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.chunkLens)
	if n == 0 {
		return nil
	}
	avgLen := float64(idx.totalLen) / float64(n)

	scores := make(map[string]float64)
	for _, term := range queryTerms {
		chunks, ok := idx.terms[term]
		if !ok {
			continue
		}
		idf := computeIDF(n, len(chunks))
		for chunkID, p := range chunks {
			tf := computeTFNorm(float64(p.frequency), float64(idx.chunkLens[chunkID]), avgLen)
			scores[chunkID] += idf * tf
		}
	}

	hits := make([]ScoredChunk, 0, len(scores))
	for chunkID, s := range scores {
		// Saturate raw BM25 into [0,1) so keyword scores share a scale
		// with vector similarity.
		hits = append(hits, ScoredChunk{ChunkID: chunkID, Score: s / (s + 1)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunkLens)
}

// TermCount returns the number of distinct terms in the index.
func (idx *Index) TermCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.terms)
}

func computeIDF(totalChunks, chunkFreq int) float64 {
	return math.Log((float64(totalChunks)-float64(chunkFreq)+0.5)/(float64(chunkFreq)+0.5) + 1)
}

func computeTFNorm(termFreq, chunkLen, avgLen float64) float64 {
	if avgLen == 0 {
		return 0
	}
	denom := termFreq + k1*(1-b+b*chunkLen/avgLen)
	return termFreq * (k1 + 1) / denom
}
