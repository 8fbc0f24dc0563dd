package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("maps results", func(t *testing.T) {
		created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		search := &mockSearchService{
			results: []domain.SearchResult{{
				ItemID:        "item-1",
				Score:         0.75,
				MatchedChunks: []string{"item-1#0"},
				Preview:       "the preview",
				Metadata: domain.ResultMetadata{
					Title:     "Runbook",
					Modality:  domain.ModalityDocument,
					Tags:      []string{"ops"},
					CreatedAt: created,
				},
			}},
		}
		server, err := NewServer(&Ports{Search: search, Subject: stubSubject{id: "u1"}})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "deploy", Limit: 5, Previews: true})

		require.NoError(t, err)
		require.Equal(t, 1, output.Count)
		got := output.Results[0]
		assert.Equal(t, "item-1", got.ItemID)
		assert.Equal(t, "sercha-kb://items/item-1", got.URI)
		assert.Equal(t, "Runbook", got.Title)
		assert.Equal(t, "document", got.Modality)
		assert.Equal(t, 0.75, got.Score)
		assert.Equal(t, "the preview", got.Preview)
		assert.Equal(t, "2025-03-01T12:00:00Z", got.CreatedAt)

		assert.Equal(t, stubSubject{id: "u1"}, search.lastSubject)
		assert.Equal(t, "deploy", search.lastReq.Query)
		assert.Equal(t, 5, search.lastReq.Filters.Limit)
		assert.True(t, search.lastReq.Config.Previews)
		assert.False(t, search.lastReq.Config.UseScores)
	})

	t.Run("builds filters", func(t *testing.T) {
		search := &mockSearchService{}
		server, err := NewServer(&Ports{Search: search})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{
			Query:      "q",
			Modalities: []string{"email", "issue"},
			Tags:       []string{"a"},
			ItemIDs:    []string{"x"},
			After:      "2024-01-01T00:00:00Z",
			Rerank:     true,
		})

		require.NoError(t, err)
		req := search.lastReq
		assert.Equal(t, []domain.Modality{domain.ModalityEmail, domain.ModalityIssue}, req.Modalities)
		assert.Equal(t, []string{"a"}, req.Filters.Tags)
		assert.Equal(t, []string{"x"}, req.Filters.ItemIDs)
		assert.Equal(t, 2024, req.Filters.CreatedAfter.Year())
		assert.True(t, req.Filters.CreatedBefore.IsZero())
		assert.True(t, req.Config.UseScores)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "q", Modalities: []string{"video"}})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "q", Before: "yesterday"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{err: errors.New("search failed")}})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}
