package keyword

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRanksMatchingChunks(t *testing.T) {
	idx := New()
	idx.Add("c1", "golang concurrency patterns with channels and goroutines")
	idx.Add("c2", "python asyncio event loops")
	idx.Add("c3", "golang golang golang standard library")

	hits := idx.Search("golang", 10)
	require.Len(t, hits, 2)
	// c3 repeats the term, so it outranks c1.
	assert.Equal(t, "c3", hits[0].ChunkID)
	assert.Equal(t, "c1", hits[1].ChunkID)
}

func TestSearchScoresAreNormalized(t *testing.T) {
	idx := New()
	for i := 0; i < 20; i++ {
		idx.Add(fmt.Sprintf("c%d", i), "filler text about other things")
	}
	idx.Add("target", "database database database indexing performance")

	hits := idx.Search("database indexing", 5)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.Less(t, h.Score, 1.0)
	}
	assert.Equal(t, "target", hits[0].ChunkID)
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := New()
	idx.Add("c1", "some indexed content")
	assert.Empty(t, idx.Search("", 10))
	assert.Empty(t, idx.Search("a an to", 10))
}

func TestSearchUnknownTerms(t *testing.T) {
	idx := New()
	idx.Add("c1", "some indexed content")
	assert.Empty(t, idx.Search("zebra quantum", 10))
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := New()
	assert.Empty(t, idx.Search("anything", 10))
}

func TestSearchHonorsLimit(t *testing.T) {
	idx := New()
	for i := 0; i < 10; i++ {
		idx.Add(fmt.Sprintf("c%d", i), "shared term here")
	}
	hits := idx.Search("shared", 3)
	assert.Len(t, hits, 3)
}

func TestRemove(t *testing.T) {
	idx := New()
	idx.Add("c1", "unique marker phrase")
	idx.Add("c2", "another marker entry")
	require.Len(t, idx.Search("marker", 10), 2)

	idx.Remove("c1")
	hits := idx.Search("marker", 10)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].ChunkID)
	assert.Equal(t, 1, idx.Len())

	// Removing again is a no-op.
	idx.Remove("c1")
	assert.Equal(t, 1, idx.Len())
}

func TestRemoveDropsEmptyTerms(t *testing.T) {
	idx := New()
	idx.Add("c1", "solitary concept")
	idx.Remove("c1")
	assert.Equal(t, 0, idx.TermCount())
	assert.Empty(t, idx.Search("solitary", 10))
}

func TestAddReplacesExistingChunk(t *testing.T) {
	idx := New()
	idx.Add("c1", "original wording here")
	idx.Add("c1", "replacement phrasing now")

	assert.Empty(t, idx.Search("original", 10))
	require.Len(t, idx.Search("replacement", 10), 1)
	assert.Equal(t, 1, idx.Len())
}

func TestShortTermsIgnored(t *testing.T) {
	idx := New()
	idx.Add("c1", "go is ok but rust and zig differ")
	// "go", "is", "ok" are dropped by the length filter.
	assert.Empty(t, idx.Search("go", 10))
	assert.NotEmpty(t, idx.Search("rust", 10))
}
