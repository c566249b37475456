// Package embeddings
package embeddings

import "context"

// Embedder provides batched text embedding capabilities.
type Embedder interface {
	// Embed converts a batch of texts into vector embeddings, one per
	// input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
