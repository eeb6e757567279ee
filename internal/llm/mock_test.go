package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/models"
	"github.com/harper/vaultsearch/internal/similarity"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(16)
	ctx := context.Background()

	a1, err := e.Embed(ctx, "garden notes")
	require.NoError(t, err)
	a2, _ := e.Embed(ctx, "garden notes")
	b, _ := e.Embed(ctx, "tax returns")

	assert.Equal(t, a1, a2)
	assert.Len(t, a1, 16)
	assert.InDelta(t, 1.0, similarity.Magnitude(a1), 1e-5)
	assert.NotEqual(t, a1, b)
	assert.Equal(t, 3, e.Calls())
}

func TestStaticEmbedder(t *testing.T) {
	e := &StaticEmbedder{Vectors: map[string]models.Vector{"q": {1, 0}}}

	v, err := e.Embed(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, models.Vector{1, 0}, v)

	_, err = e.Embed(context.Background(), "other")
	assert.Equal(t, apperr.Embedding, apperr.KindOf(err))

	e.Fallback = models.Vector{0, 1}
	v, err = e.Embed(context.Background(), "other")
	require.NoError(t, err)
	assert.Equal(t, models.Vector{0, 1}, v)
}
