// Package embedding provides text embedding clients and vector math used by
// deduplication and screening.
package embedding

import (
	"context"
	"errors"
	"math"
)

// ErrEmptyInput is returned when an embedding request contains no text.
var ErrEmptyInput = errors.New("embedding input is empty")

// Embedder generates dense vector representations of text.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int
}

// Cosine computes the cosine similarity between two vectors. It returns 0
// when either vector is empty, of mismatched length, or has zero norm.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ClampUnit clamps a similarity score into the [0, 1] interval.
func ClampUnit(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
