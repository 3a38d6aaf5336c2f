// Package embedding provides the gateway that maps chunk and query text
// to fixed-dimension vectors via an OpenAI-compatible provider, with an
// LRU result cache and circuit-breaker protection around the remote call.
package embedding

import (
	"context"
	"math"
)

// Gateway produces fixed-dimension vectors for text.
type Gateway interface {
	// Embed returns the vector for text, or ErrEmbeddingUnavailable /
	// ErrEmbeddingTimeout.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension is the length of every vector Embed returns.
	Dimension() int
}

// Normalize scales v to unit length in place and returns it. The zero
// vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
