// ABOUTME: Cosine similarity between embedding vectors
// ABOUTME: Accumulates in float64 so long float32 vectors keep precision
package similarity

import (
	"math"

	"github.com/harper/vaultsearch/internal/models"
)

// Cosine returns dot(a, b) / (|a| * |b|). It is 0 when either vector has zero
// magnitude or the lengths differ.
func Cosine(a, b models.Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Magnitude returns the euclidean norm of v
func Magnitude(v models.Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
