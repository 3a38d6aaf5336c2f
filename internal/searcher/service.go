// Package searcher orchestrates the hybrid search core: it owns the
// vector and keyword indexes, drives chunking and embedding during
// ingestion, and serves search, document-scoped search, and
// similar-document queries.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/docusage-ai/search-platform/internal/embedding"
	"github.com/docusage-ai/search-platform/internal/index/chunker"
	"github.com/docusage-ai/search-platform/internal/index/keyword"
	"github.com/docusage-ai/search-platform/internal/index/vector"
	"github.com/docusage-ai/search-platform/internal/searcher/fusion"
	"github.com/docusage-ai/search-platform/internal/searcher/highlight"
	"github.com/docusage-ai/search-platform/pkg/config"
	apperrors "github.com/docusage-ai/search-platform/pkg/errors"
	"github.com/docusage-ai/search-platform/pkg/metrics"
	"github.com/docusage-ai/search-platform/pkg/tracing"
)

const lockStripes = 64

type chunkInfo struct {
	id       string
	text     string
	start    int
	end      int
	embedded bool
}

type docEntry struct {
	title   string
	summary string
	chunks  []chunkInfo
}

// Service owns all index state. Mutations to the same document are
// serialized through striped per-document locks; mutations to different
// documents proceed concurrently, and reads never block on embedding
// calls.
type Service struct {
	cfg     config.SearchConfig
	gateway embedding.Gateway
	chunks  *chunker.Chunker
	vectors *vector.Index
	terms   *keyword.Index
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	docs      map[string]*docEntry
	chunkDocs map[string]string

	docLocks [lockStripes]sync.Mutex
}

// New builds a Service with empty indexes.
func New(cfg config.SearchConfig, gateway embedding.Gateway, m *metrics.Metrics) *Service {
	return &Service{
		cfg:       cfg,
		gateway:   gateway,
		chunks:    chunker.New(cfg.ChunkSize, cfg.ChunkOverlap),
		vectors:   vector.New(gateway.Dimension()),
		terms:     keyword.New(),
		logger:    slog.Default().With("component", "searcher"),
		metrics:   m,
		docs:      make(map[string]*docEntry),
		chunkDocs: make(map[string]string),
	}
}

func (s *Service) lockFor(documentID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(documentID))
	return &s.docLocks[h.Sum32()%lockStripes]
}

// AddDocument chunks, embeds, and indexes a document. Individual chunk
// embedding failures are logged and skipped; the document still reaches
// the keyword index in full, degrading to keyword-only retrieval when no
// chunk could be embedded. Re-adding an existing document replaces it.
func (s *Service) AddDocument(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID is empty", apperrors.ErrInvalidInput)
	}
	lock := s.lockFor(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	pieces := s.chunks.Split(doc.FullText)

	// Embedding happens before any index is touched, so no lock covers
	// the network calls.
	vectors := make([][]float32, len(pieces))
	g, gctx := errgroup.WithContext(ctx)
	workers := s.cfg.EmbedWorkers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)
	for i, piece := range pieces {
		g.Go(func() error {
			vec, err := s.gateway.Embed(gctx, piece.Text)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("chunk embedding failed, indexing keyword-only",
					"document_id", doc.ID, "chunk", piece.Index, "error", err)
				if s.metrics != nil {
					s.metrics.EmbeddingFailuresTotal.WithLabelValues(failureReason(err)).Inc()
				}
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCancelled, err)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCancelled, ctx.Err())
	}

	s.purge(doc.ID)

	entry := &docEntry{title: doc.Title, summary: doc.Summary, chunks: make([]chunkInfo, 0, len(pieces))}
	embedded := 0
	for i, piece := range pieces {
		chunkID := fmt.Sprintf("%s-%d", doc.ID, piece.Index)
		s.terms.Add(chunkID, piece.Text)
		info := chunkInfo{id: chunkID, text: piece.Text, start: piece.Start, end: piece.End}
		if vectors[i] != nil {
			if err := s.vectors.Add(chunkID, doc.ID, vectors[i]); err != nil {
				s.logger.Warn("vector insert failed", "chunk_id", chunkID, "error", err)
			} else {
				info.embedded = true
				embedded++
			}
		}
		entry.chunks = append(entry.chunks, info)
	}

	s.mu.Lock()
	s.docs[doc.ID] = entry
	for _, c := range entry.chunks {
		s.chunkDocs[c.id] = doc.ID
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.DocsIndexedTotal.Inc()
		s.metrics.ChunksEmbeddedTotal.Add(float64(embedded))
		s.metrics.IndexedDocuments.Set(float64(s.DocumentCount()))
		s.metrics.VectorEntries.Set(float64(s.vectors.Len()))
	}
	s.logger.Info("document indexed",
		"document_id", doc.ID, "chunks", len(pieces), "embedded", embedded)
	return nil
}

// UpdateDocument replaces a document's chunks. Old entries are fully
// purged before new entries become queryable; a concurrent reader sees
// either the old document or the new one, with a brief window where the
// document is absent.
func (s *Service) UpdateDocument(ctx context.Context, doc Document) error {
	return s.AddDocument(ctx, doc)
}

// RemoveDocument purges a document from both indexes. Removing an absent
// document is a no-op.
func (s *Service) RemoveDocument(documentID string) {
	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()
	if s.purge(documentID) && s.metrics != nil {
		s.metrics.DocsRemovedTotal.Inc()
		s.metrics.IndexedDocuments.Set(float64(s.DocumentCount()))
		s.metrics.VectorEntries.Set(float64(s.vectors.Len()))
	}
}

// purge removes all trace of a document, reporting whether it existed.
// Callers must hold the document's stripe lock.
func (s *Service) purge(documentID string) bool {
	s.mu.Lock()
	entry, ok := s.docs[documentID]
	if ok {
		delete(s.docs, documentID)
		for _, c := range entry.chunks {
			delete(s.chunkDocs, c.id)
		}
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.vectors.Remove(documentID)
	for _, c := range entry.chunks {
		s.terms.Remove(c.id)
	}
	return true
}

// Search runs the hybrid retrieval pipeline: both channels are queried,
// scores fused per document, and highlights attached. In hybrid mode a
// failed query embedding degrades the search to keyword-only instead of
// failing; in semantic-only mode the error is surfaced.
func (s *Service) Search(ctx context.Context, query string, opts Options) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.ErrInvalidQuery
	}
	opts = s.normalize(opts)

	ctx, span := tracing.Child(ctx, "search")
	defer span.End()
	span.Attr("limit", opts.Limit)

	mode := opts.Mode
	var semantic []fusion.Candidate
	if mode != ModeKeyword {
		cands, err := s.semanticCandidates(ctx, query, 2*opts.Limit)
		switch {
		case err == nil:
			semantic = cands
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCancelled, ctx.Err())
		case mode == ModeSemantic:
			return nil, err
		default:
			s.logger.Warn("semantic channel unavailable, degrading to keyword-only", "error", err)
			mode = ModeKeyword
		}
	}

	var kw []fusion.Candidate
	if mode != ModeSemantic {
		for _, hit := range s.terms.Search(query, 2*opts.Limit) {
			docID, ok := s.documentOf(hit.ChunkID)
			if !ok {
				continue
			}
			kw = append(kw, fusion.Candidate{DocumentID: docID, ChunkID: hit.ChunkID, Score: hit.Score})
		}
	}

	merged := fusion.Merge(semantic, kw, s.weights(), opts.Limit, opts.Threshold)
	results := s.buildResults(merged, query, true)
	span.Attr("results", len(results))
	return results, nil
}

// SearchWithinDocument restricts retrieval to one document's chunks and
// ranks the chunks themselves. An unknown document is an error rather
// than an empty result so the API layer can answer 404.
func (s *Service) SearchWithinDocument(ctx context.Context, documentID, query string, opts Options) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.ErrInvalidQuery
	}
	opts = s.normalize(opts)

	s.mu.RLock()
	entry, ok := s.docs[documentID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, documentID)
	}

	mode := opts.Mode
	var semantic []fusion.Candidate
	if mode != ModeKeyword {
		vec, err := s.gateway.Embed(ctx, query)
		switch {
		case err == nil:
			neighbors, qerr := s.vectors.QueryWithin(documentID, vec, 2*opts.Limit)
			if qerr != nil {
				return nil, qerr
			}
			for _, n := range neighbors {
				// Chunk ID stands in for the document ID so fusion
				// dedupes per chunk.
				semantic = append(semantic, fusion.Candidate{
					DocumentID: n.ChunkID,
					ChunkID:    n.ChunkID,
					Score:      vector.Score(n.Distance),
				})
			}
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCancelled, ctx.Err())
		case mode == ModeSemantic:
			return nil, err
		default:
			s.logger.Warn("semantic channel unavailable, degrading to keyword-only", "error", err)
			mode = ModeKeyword
		}
	}

	var kw []fusion.Candidate
	if mode != ModeSemantic {
		for _, hit := range s.terms.Search(query, 0) {
			if docID, ok := s.documentOf(hit.ChunkID); !ok || docID != documentID {
				continue
			}
			kw = append(kw, fusion.Candidate{DocumentID: hit.ChunkID, ChunkID: hit.ChunkID, Score: hit.Score})
		}
	}

	merged := fusion.Merge(semantic, kw, s.weights(), opts.Limit, opts.Threshold)
	results := make([]SearchResult, 0, len(merged))
	for _, m := range merged {
		text, ok := s.chunkText(entry, m.ChunkID)
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			DocumentID:     documentID,
			Title:          entry.title,
			Content:        text,
			RelevanceScore: m.Score,
			SearchType:     m.SearchType,
			Highlights:     highlight.Find(text, query),
		})
	}
	return results, nil
}

// FindSimilar ranks other documents by vector proximity to the given
// document's first chunk. Results carry no highlights. A document with
// no embedded chunks yields empty results; an unknown document is an
// error.
func (s *Service) FindSimilar(documentID string, k int) ([]SearchResult, error) {
	s.mu.RLock()
	srcEntry, known := s.docs[documentID]
	s.mu.RUnlock()
	if !known {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, documentID)
	}
	if k <= 0 {
		k = s.cfg.DefaultLimit
	}

	seed, ok := s.vectors.FirstVector(documentID)
	if !ok {
		return nil, nil
	}

	// Over-fetch so the source document's own chunks can be skipped.
	neighbors, err := s.vectors.Query(seed, k+len(srcEntry.chunks)+k)
	if err != nil {
		return nil, err
	}

	best := make(map[string]fusion.Candidate)
	order := make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		if n.DocumentID == documentID {
			continue
		}
		score := vector.Score(n.Distance)
		if cur, seen := best[n.DocumentID]; !seen || score > cur.Score {
			if !seen {
				order = append(order, n.DocumentID)
			}
			best[n.DocumentID] = fusion.Candidate{DocumentID: n.DocumentID, ChunkID: n.ChunkID, Score: score}
		}
	}

	results := make([]SearchResult, 0, k)
	for _, docID := range order {
		if len(results) == k {
			break
		}
		c := best[docID]
		s.mu.RLock()
		entry, ok := s.docs[docID]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		// Document-level results show the ingested summary when one
		// exists; the matched chunk text is the fallback.
		text := entry.summary
		if text == "" {
			text, _ = s.chunkText(entry, c.ChunkID)
		}
		results = append(results, SearchResult{
			DocumentID:     docID,
			Title:          entry.title,
			Content:        text,
			RelevanceScore: c.Score,
			SearchType:     fusion.TypeSemantic,
			Highlights:     []highlight.Span{},
		})
	}
	return results, nil
}

// Stats reports current index sizes.
func (s *Service) Stats() Stats {
	return Stats{
		TotalDocuments:     s.DocumentCount(),
		TotalVectorEntries: s.vectors.Len(),
		TotalKeywordChunks: s.terms.Len(),
	}
}

// DocumentCount returns the number of indexed documents.
func (s *Service) DocumentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// ChunkCount returns how many chunks a document is indexed under, zero
// for unknown documents.
func (s *Service) ChunkCount(documentID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.docs[documentID]
	if !ok {
		return 0
	}
	return len(entry.chunks)
}

// HasDocument reports whether a document is currently indexed.
func (s *Service) HasDocument(documentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[documentID]
	return ok
}

func (s *Service) semanticCandidates(ctx context.Context, query string, k int) ([]fusion.Candidate, error) {
	vec, err := s.gateway.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	neighbors, err := s.vectors.Query(vec, k)
	if err != nil {
		return nil, err
	}
	cands := make([]fusion.Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		cands = append(cands, fusion.Candidate{
			DocumentID: n.DocumentID,
			ChunkID:    n.ChunkID,
			Score:      vector.Score(n.Distance),
		})
	}
	return cands, nil
}

func (s *Service) buildResults(merged []fusion.Merged, query string, withHighlights bool) []SearchResult {
	results := make([]SearchResult, 0, len(merged))
	for _, m := range merged {
		s.mu.RLock()
		entry, ok := s.docs[m.DocumentID]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		text, _ := s.chunkText(entry, m.ChunkID)
		spans := []highlight.Span{}
		if withHighlights {
			spans = highlight.Find(text, query)
		}
		results = append(results, SearchResult{
			DocumentID:     m.DocumentID,
			Title:          entry.title,
			Content:        text,
			RelevanceScore: m.Score,
			SearchType:     m.SearchType,
			Highlights:     spans,
		})
	}
	return results
}

func (s *Service) chunkText(entry *docEntry, chunkID string) (string, bool) {
	for _, c := range entry.chunks {
		if c.id == chunkID {
			return c.text, true
		}
	}
	return "", false
}

func (s *Service) documentOf(chunkID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docID, ok := s.chunkDocs[chunkID]
	return docID, ok
}

func (s *Service) normalize(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = s.cfg.DefaultLimit
	}
	if s.cfg.MaxResults > 0 && opts.Limit > s.cfg.MaxResults {
		opts.Limit = s.cfg.MaxResults
	}
	if !opts.ThresholdSet {
		opts.Threshold = s.cfg.Threshold
	}
	return opts
}

func (s *Service) weights() fusion.Weights {
	return fusion.Weights{Semantic: s.cfg.SemanticWeight, Keyword: s.cfg.KeywordWeight}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrEmbeddingTimeout):
		return "timeout"
	case errors.Is(err, apperrors.ErrEmbeddingUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
