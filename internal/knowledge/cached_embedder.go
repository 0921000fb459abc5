package knowledge

import (
	"context"

	"github.com/Nireus79/Socrates-sub009/internal/lru"
)

// CachedEmbedder memoizes vectors from an underlying embedder, keyed by the
// exact input text. Repeated queries and re-imported entries then skip the
// embedding backend. Errors are never cached.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU of the given capacity.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		cache: lru.New[string, []float32](capacity),
	}
}

// Embed returns the cached vector for text, or asks the inner embedder.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		return vec, nil
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Put(text, vec)
	return vec, nil
}

// Dimensions reports the inner embedder's vector length.
func (e *CachedEmbedder) Dimensions() int { return e.inner.Dimensions() }
