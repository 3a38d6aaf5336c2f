package searcher

import (
	"github.com/docusage-ai/search-platform/internal/searcher/fusion"
	"github.com/docusage-ai/search-platform/internal/searcher/highlight"
)

// Document is the ingestion-side input: a document with its extracted
// text already flattened by the caller.
type Document struct {
	ID       string
	Title    string
	FullText string
	Summary  string
}

// Mode selects which retrieval channels a search uses.
type Mode int

const (
	ModeHybrid Mode = iota
	ModeSemantic
	ModeKeyword
)

// Options tunes a single search call. Zero values fall back to the
// service configuration.
type Options struct {
	Limit     int
	Threshold float64
	// ThresholdSet distinguishes an explicit zero threshold from the
	// default.
	ThresholdSet bool
	Mode         Mode
}

// SearchResult is one ranked hit. All fields are always present so
// downstream consumers handle every search type uniformly.
type SearchResult struct {
	DocumentID     string            `json:"documentId"`
	Title          string            `json:"title"`
	Content        string            `json:"content"`
	RelevanceScore float64           `json:"relevanceScore"`
	SearchType     fusion.SearchType `json:"searchType"`
	Highlights     []highlight.Span  `json:"highlights"`
}

// Stats is a point-in-time snapshot of index size.
type Stats struct {
	TotalDocuments     int `json:"totalDocuments"`
	TotalVectorEntries int `json:"totalVectorEntries"`
	TotalKeywordChunks int `json:"totalKeywordChunks"`
}
