package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// VectorIndex provides semantic similarity search operations.
type VectorIndex interface {
	// Upsert stores the embedding for a chunk together with the metadata
	// needed to evaluate filters without a join.
	Upsert(ctx context.Context, chunk domain.Chunk, embedding []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, chunkID string) error

	// Search finds the nearest neighbours to the query vector that satisfy
	// the modality and access predicates. Only STORED chunks are returned.
	Search(ctx context.Context, q VectorQuery) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorQuery is a single nearest-neighbour query.
type VectorQuery struct {
	Embedding  []float32
	Modalities []domain.Modality

	// Access is the authorisation predicate. Nil means unrestricted.
	Access *domain.AccessFilter

	TopK int
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score.
	Similarity float64

	// Chunk is the metadata stored alongside the vector. Content may be empty.
	Chunk domain.Chunk
}
