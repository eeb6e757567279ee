// ABOUTME: QueryEmbedder contract used by the search service
// ABOUTME: Turns query text or note passages into vectors comparable with the index
package llm

import (
	"context"

	"github.com/harper/vaultsearch/internal/models"
)

// Embedder produces vectors in the same space as the index
type Embedder interface {
	Embed(ctx context.Context, text string) (models.Vector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]models.Vector, error)
	Model() string
}
