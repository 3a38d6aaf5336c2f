// Package chunker splits document text into overlapping character windows
// for embedding and indexing. Window boundaries prefer sentence or
// paragraph breaks near the window end so chunks stay coherent.
package chunker

import "strings"

// Chunk is one window of a document's text.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Chunker carries the window geometry.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Size must be positive; overlap must be smaller
// than size or progress between windows is not guaranteed, so it is
// clamped.
func New(size, overlap int) *Chunker {
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into overlapping chunks. Each window ends at the last
// sentence boundary ('.') or paragraph break ("\n\n") found in its second
// half, falling back to a hard cut at the window size. Chunks that trim
// to nothing are dropped, but the index still advances per emitted chunk.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.breakPoint(runes, start, end)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  piece,
				Start: start,
				End:   end,
			})
		}
		if end == len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// breakPoint searches backward from the hard cut for a sentence end or
// paragraph break, but never past the midpoint of the window.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	min := start + c.size/2
	for i := end - 1; i > min; i-- {
		if runes[i] == '.' {
			return i + 1
		}
		if runes[i] == '\n' && i > 0 && runes[i-1] == '\n' {
			return i + 1
		}
	}
	return end
}
