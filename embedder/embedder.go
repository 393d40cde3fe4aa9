// Package embedder defines the text embedding contract used by the
// memory writer and retriever.
package embedder

import "context"

// Embedder converts text into a dense vector. Implementations must be
// safe for concurrent use; the writer and retriever may embed from
// multiple goroutines.
type Embedder interface {
	// Embed returns the vector for text. Embedding always runs on the
	// plaintext summary, before any encryption.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed vector size this embedder produces.
	Dimensions() int
}
