package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// mockSearchService records the last request and returns canned results.
type mockSearchService struct {
	results     []domain.SearchResult
	err         error
	lastSubject domain.Subject
	lastReq     domain.SearchRequest
}

func (m *mockSearchService) Search(
	_ context.Context,
	subject domain.Subject,
	req domain.SearchRequest,
) ([]domain.SearchResult, error) {
	m.lastSubject = subject
	m.lastReq = req
	return m.results, m.err
}

// mockItemService returns a fixed item.
type mockItemService struct {
	item   *domain.Item
	chunks []domain.Chunk
	err    error
	lastID string
}

func (m *mockItemService) Get(_ context.Context, _ domain.Subject, id string) (*domain.Item, []domain.Chunk, error) {
	m.lastID = id
	return m.item, m.chunks, m.err
}

type stubSubject struct{ id string }

func (s stubSubject) SubjectID() string      { return s.id }
func (s stubSubject) LinkedPersonID() string { return "" }
func (s stubSubject) HasScope(string) bool   { return false }
