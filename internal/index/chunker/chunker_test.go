package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	c := New(1000, 200)
	chunks := c.Split("a short document")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short document", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitEmptyText(t *testing.T) {
	c := New(1000, 200)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	// First sentence ends past the midpoint of the 100-char window, so
	// the first chunk should cut right after the period.
	first := strings.Repeat("a", 70) + "."
	text := first + " " + strings.Repeat("b", 200)
	c := New(100, 10)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, first, chunks[0].Text)
}

func TestSplitIgnoresBoundaryBeforeMidpoint(t *testing.T) {
	// The only period sits in the first half of the window, so the cut
	// falls at the full window size instead.
	text := strings.Repeat("a", 20) + "." + strings.Repeat("b", 200)
	c := New(100, 10)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Len(t, chunks[0].Text, 100)
}

func TestSplitOverlap(t *testing.T) {
	text := strings.Repeat("x", 250)
	c := New(100, 20)
	chunks := c.Split(text)
	require.True(t, len(chunks) >= 2)
	// Second window starts overlap characters before the first one ends.
	assert.Equal(t, chunks[0].End-20, chunks[1].Start)
}

func TestSplitAlwaysAdvances(t *testing.T) {
	// Overlap equal to size would stall; New clamps it.
	text := strings.Repeat("y", 50)
	c := New(10, 10)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Start, chunks[i-1].Start)
	}
}

func TestSplitIndexesAreSequential(t *testing.T) {
	text := strings.Repeat("word ", 500)
	c := New(100, 20)
	chunks := c.Split(text)
	require.True(t, len(chunks) > 1)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestSplitCoversWholeText(t *testing.T) {
	text := strings.Repeat("the quick brown fox. ", 100)
	c := New(100, 20)
	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, len([]rune(text)), chunks[len(chunks)-1].End)
}
