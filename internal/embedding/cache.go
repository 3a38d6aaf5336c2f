package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedGateway memoizes embeddings in an LRU keyed by a hash of the
// text. Repeated chunks (re-indexing) and repeated queries skip the
// provider round trip.
type CachedGateway struct {
	inner Gateway
	cache *lru.Cache[string, []float32]
}

// NewCachedGateway wraps inner with an LRU of the given size. A size of
// zero or less disables caching and returns inner unchanged.
func NewCachedGateway(inner Gateway, size int) Gateway {
	if size <= 0 {
		return inner
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return inner
	}
	return &CachedGateway{inner: inner, cache: cache}
}

func (c *CachedGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	key := hashText(text)
	if vec, ok := c.cache.Get(key); ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(key, stored)
	return vec, nil
}

func (c *CachedGateway) Dimension() int {
	return c.inner.Dimension()
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
