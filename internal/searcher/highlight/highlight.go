// Package highlight locates query-term spans inside result content for
// display. Spans are case-insensitive substring matches, deduplicated so
// no two highlights overlap, in document order, capped per result.
package highlight

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxHighlights caps the spans returned per result.
const MaxHighlights = 10

// Span is one highlighted range [Start, End) in the content, with the
// matched text as it appears there.
type Span struct {
	Start int    `json:"startIndex"`
	End   int    `json:"endIndex"`
	Text  string `json:"text"`
	Type  string `json:"type"`
}

// TypeKeyword marks spans produced by literal term matching, the only
// span kind currently emitted.
const TypeKeyword = "keyword"

// Find returns the highlight spans for query inside content. Query terms
// of two characters or fewer are skipped.
func Find(content, query string) []Span {
	if content == "" {
		return nil
	}

	var spans []Span
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if len(term) <= 2 {
			continue
		}
		from := 0
		for from < len(content) {
			start, end := indexFold(content[from:], term)
			if start < 0 {
				break
			}
			spans = append(spans, Span{Start: from + start, End: from + end})
			from += end
		}
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})

	kept := spans[:0]
	lastEnd := -1
	for _, s := range spans {
		if s.Start < lastEnd {
			continue
		}
		s.Text = content[s.Start:s.End]
		s.Type = TypeKeyword
		kept = append(kept, s)
		lastEnd = s.End
		if len(kept) == MaxHighlights {
			break
		}
	}
	return kept
}

// indexFold finds the first case-insensitive occurrence of term (already
// lowercased) in s. Matching walks runes of s directly so the returned byte
// offsets are valid for s itself, which a lowercased copy cannot guarantee
// when case folding changes rune width. Returns start and end offsets, or
// -1, -1 when absent.
func indexFold(s, term string) (int, int) {
	for i := range s {
		if n, ok := matchFold(s[i:], term); ok {
			return i, i + n
		}
	}
	return -1, -1
}

// matchFold reports whether s begins with term under simple case folding,
// returning the number of bytes of s consumed by the match.
func matchFold(s, term string) (int, bool) {
	n := 0
	for _, tr := range term {
		sr, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 || unicode.ToLower(sr) != tr {
			return 0, false
		}
		n += size
	}
	return n, true
}
