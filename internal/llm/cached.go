// ABOUTME: Caching decorator for embedders
// ABOUTME: Serves repeated queries and passages from a persistent vector cache
package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/harper/vaultsearch/internal/models"
)

// VectorCache stores vectors by model and text. The sqlite EmbeddingStore
// implements it.
type VectorCache interface {
	Get(model, text string) (models.Vector, bool, error)
	Put(model, text string, vec models.Vector) error
}

// CachedEmbedder wraps an Embedder with a VectorCache. Cache failures are
// logged and never fail the embedding.
type CachedEmbedder struct {
	next   Embedder
	cache  VectorCache
	logger *zap.Logger
}

// NewCachedEmbedder returns next wrapped with cache
func NewCachedEmbedder(next Embedder, cache VectorCache, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{next: next, cache: cache, logger: logger}
}

// Model returns the wrapped embedder's model
func (c *CachedEmbedder) Model() string { return c.next.Model() }

// Embed returns the cached vector or embeds and stores it
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (models.Vector, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds only the texts missing from the cache, in one call
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]models.Vector, error) {
	model := c.next.Model()
	out := make([]models.Vector, len(texts))

	var (
		missing []string
		slots   []int
	)
	for i, text := range texts {
		vec, ok, err := c.cache.Get(model, text)
		if err != nil {
			c.logger.Warn("embedding cache read failed", zap.Error(err))
		}
		if ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		slots = append(slots, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		out[slots[j]] = vec
		if err := c.cache.Put(model, missing[j], vec); err != nil {
			c.logger.Warn("embedding cache write failed", zap.Error(err))
		}
	}

	c.logger.Debug("embedded texts",
		zap.Int("requested", len(texts)),
		zap.Int("cache_hits", len(texts)-len(missing)),
	)
	return out, nil
}
