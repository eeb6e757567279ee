// ABOUTME: Deterministic embedders for tests and offline use
// ABOUTME: MockEmbedder hashes text into a vector; StaticEmbedder returns fixed vectors
package llm

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/models"
)

// MockEmbedder returns a fixed-dimension vector derived from the text hash so
// the same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int
	calls      int
}

// NewMockEmbedder returns a deterministic embedder of the given dimension
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic unit vector based on the text hash
func (e *MockEmbedder) Embed(ctx context.Context, text string) (models.Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.Embedding, err, "embedding cancelled")
	}
	e.calls++

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := float64(h.Sum64()%1_000_003) + 1

	vec := make(models.Vector, e.dimensions)
	var sum float64
	for i := range vec {
		v := math.Sin(seed*float64(i+1))*0.1 + 0.01
		vec[i] = float32(v)
		sum += v * v
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * norm)
		}
	}
	return vec, nil
}

// EmbedBatch calls Embed for each text
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]models.Vector, error) {
	out := make([]models.Vector, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Model returns a fixed model name
func (e *MockEmbedder) Model() string { return "mock" }

// Calls returns how many texts have been embedded
func (e *MockEmbedder) Calls() int { return e.calls }

// StaticEmbedder maps known texts to fixed vectors. Unknown texts fail with an
// EmbeddingError, or get Fallback when it is set.
type StaticEmbedder struct {
	Vectors  map[string]models.Vector
	Fallback models.Vector
}

// Embed returns the configured vector for text
func (e *StaticEmbedder) Embed(ctx context.Context, text string) (models.Vector, error) {
	if v, ok := e.Vectors[text]; ok {
		return v, nil
	}
	if e.Fallback != nil {
		return e.Fallback, nil
	}
	return nil, apperr.New(apperr.Embedding, "no vector for %q", text)
}

// EmbedBatch calls Embed for each text
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]models.Vector, error) {
	out := make([]models.Vector, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Model returns a fixed model name
func (e *StaticEmbedder) Model() string { return "static" }
