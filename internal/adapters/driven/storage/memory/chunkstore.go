package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
type ChunkStore struct {
	mu     sync.RWMutex
	items  map[string]domain.Item
	chunks map[string]domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		items:  make(map[string]domain.Item),
		chunks: make(map[string]domain.Chunk),
	}
}

// SaveItem stores or updates an item and refreshes its chunks' metadata.
func (s *ChunkStore) SaveItem(_ context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = *item
	for id, c := range s.chunks {
		if c.ItemID == item.ID {
			s.chunks[id] = domain.ChunkFromItem(item, c.ID, c.Content, c.Position)
		}
	}
	return nil
}

// GetItem retrieves an item by ID.
func (s *ChunkStore) GetItem(_ context.Context, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

// SaveChunks stores chunks. Metadata is copied from the parent item when known.
func (s *ChunkStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if item, ok := s.items[c.ItemID]; ok {
			c = domain.ChunkFromItem(&item, c.ID, c.Content, c.Position)
		}
		s.chunks[c.ID] = c
	}
	return nil
}

// GetChunks retrieves chunks by ID.
func (s *ChunkStore) GetChunks(_ context.Context, ids []string) (map[string]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]domain.Chunk, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			result[id] = c
		}
	}
	return result, nil
}

// ListChunks returns an item's chunks in position order.
func (s *ChunkStore) ListChunks(_ context.Context, itemID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Chunk
	for _, c := range s.chunks {
		if c.ItemID == itemID {
			result = append(result, c)
		}
	}
	slices.SortFunc(result, func(a, b domain.Chunk) int { return a.Position - b.Position })
	return result, nil
}

// DeleteItem removes an item and its chunks.
func (s *ChunkStore) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.items, id)
	for cid, c := range s.chunks {
		if c.ItemID == id {
			delete(s.chunks, cid)
		}
	}
	return nil
}
