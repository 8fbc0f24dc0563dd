package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// ItemService reads single items on behalf of a subject.
type ItemService interface {
	// Get returns the item and its chunks in position order. Items the
	// subject may not read are reported as domain.ErrNotFound.
	Get(ctx context.Context, subject domain.Subject, id string) (*domain.Item, []domain.Chunk, error)
}
