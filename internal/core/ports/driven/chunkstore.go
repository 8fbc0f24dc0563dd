package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ChunkStore persists items and their chunks.
// Writes come from fixtures and the external ingestion pipeline; search only reads.
type ChunkStore interface {
	// SaveItem creates or updates an item. Carried chunk metadata is refreshed.
	SaveItem(ctx context.Context, item *domain.Item) error

	// GetItem retrieves an item by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetItem(ctx context.Context, id string) (*domain.Item, error)

	// SaveChunks creates or updates chunks. Metadata is taken from the parent item.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetChunks retrieves chunks by ID. Missing IDs are absent from the result.
	GetChunks(ctx context.Context, ids []string) (map[string]domain.Chunk, error)

	// ListChunks returns an item's chunks in position order.
	ListChunks(ctx context.Context, itemID string) ([]domain.Chunk, error)

	// DeleteItem removes an item and cascades to its chunks.
	DeleteItem(ctx context.Context, id string) error
}
