package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// Ensure ItemService implements the interface.
var _ driving.ItemService = (*ItemService)(nil)

// ItemService serves access-checked item lookups.
type ItemService struct {
	chunks driven.ChunkStore
	access *AccessControlEngine
}

// NewItemService creates an item service.
func NewItemService(chunks driven.ChunkStore, access *AccessControlEngine) *ItemService {
	if access == nil {
		access = NewAccessControlEngine(nil)
	}
	return &ItemService{chunks: chunks, access: access}
}

// Get returns the item and its chunks if subject may read it.
func (s *ItemService) Get(
	ctx context.Context, subject domain.Subject, id string,
) (*domain.Item, []domain.Chunk, error) {
	if id == "" {
		return nil, nil, fmt.Errorf("%w: item id is required", domain.ErrInvalidInput)
	}

	item, err := s.chunks.GetItem(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	var roles map[string]domain.ProjectRole
	if subject != nil && !subject.HasScope(domain.ScopeSuperadmin) {
		roles, err = s.access.DeriveProjectRoles(ctx, subject)
		if err != nil && !errors.Is(err, domain.ErrIdentityRequired) {
			s.access.log.Warn("role derivation failed for %s: %v", subject.SubjectID(), err)
			roles = nil
		}
	}
	if !s.access.CanAccess(subject, item, roles) {
		return nil, nil, domain.ErrNotFound
	}

	chunks, err := s.chunks.ListChunks(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("list chunks for %s: %w", id, err)
	}
	return item, chunks, nil
}
