// Package embeddings
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding is returned when embedding generation fails.
var ErrEmbedding = errors.New("embedding failed")

// Embedder maps text and images onto a shared embedding space. Returned
// vectors are L2-normalized and of a fixed dimensionality per deployment.
type Embedder interface {
	// EmbedTexts converts texts into vector embeddings, one per input,
	// in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedImages converts raw image bytes into vector embeddings, one
	// per input, in input order.
	EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
