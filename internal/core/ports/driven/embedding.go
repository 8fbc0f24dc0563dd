package driven

import "context"

// EmbeddingService turns text into vectors for the VectorIndex. Queries and
// chunks must be embedded by the same model; Dimensions is checked against
// the index when it is opened.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order. The search
	// path uses it for the HyDE fragments of a single query.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping makes the smallest request the provider accepts.
	Ping(ctx context.Context) error

	Close() error
}
