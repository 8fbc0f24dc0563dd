package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// LexicalIndex provides full-text search over chunk text.
// Backed by SQLite FTS5 with bm25 ranking.
type LexicalIndex interface {
	// Search runs a normalised query and returns hits ordered by native rank,
	// best first. The access filter must be applied as a native predicate.
	Search(ctx context.Context, q LexicalQuery) ([]LexicalHit, error)
}

// LexicalQuery is a single full-text query.
type LexicalQuery struct {
	// Query is the normalised query expression, e.g. `async* AND go*`.
	Query string

	// Modalities restricts the search. Empty means all.
	Modalities []domain.Modality

	// Filters carries the tag and item ID allow-lists.
	Filters domain.SearchFilters

	// Access is the authorisation predicate. Nil means unrestricted.
	Access *domain.AccessFilter

	// Limit caps the number of hits.
	Limit int
}

// LexicalHit is a full-text match.
type LexicalHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Rank is the backend's native relevance, larger is better.
	// A rank of exactly zero means no match.
	Rank float64
}
