package index

import "context"

// Embedder turns document texts into vectors. Implementations return one
// vector per input text, in the same order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}
