package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations must return one vector per input text in input
// order, and must surface throttling as domain.ErrRateLimited so
// callers can apply backoff distinct from other failures.
type EmbeddingService interface {
	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
