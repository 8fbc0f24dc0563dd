package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestExtractItemID(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"sercha-kb://items/abc", "abc"},
		{"sercha-kb://items/", ""},
		{"sercha-kb://items/a/b", ""},
		{"sercha://documents/abc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, extractItemID(tt.uri))
		})
	}
}

func TestServer_handleItemResource(t *testing.T) {
	ctx := context.Background()

	t.Run("no item service", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		_, err = server.handleItemResource(ctx, makeReadResourceRequest("sercha-kb://items/a"))

		assert.Error(t, err)
	})

	t.Run("returns item json", func(t *testing.T) {
		items := &mockItemService{
			item: &domain.Item{
				ID:             "a",
				Title:          "Alpha",
				Modality:       domain.ModalityNote,
				Sensitivity:    domain.SensitivityBasic,
				IndexingStatus: domain.StatusStored,
			},
			chunks: []domain.Chunk{{Content: "one"}, {Content: "two"}},
		}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Items: items})
		require.NoError(t, err)

		result, err := server.handleItemResource(ctx, makeReadResourceRequest("sercha-kb://items/a"))

		require.NoError(t, err)
		assert.Equal(t, "a", items.lastID)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"title": "Alpha"`)
		assert.Contains(t, result.Contents[0].Text, `"two"`)
		assert.Contains(t, result.Contents[0].Text, `"status": "STORED"`)
	})

	t.Run("hidden item is not found", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Search: &mockSearchService{},
			Items:  &mockItemService{err: domain.ErrNotFound},
		})
		require.NoError(t, err)

		_, err = server.handleItemResource(ctx, makeReadResourceRequest("sercha-kb://items/a"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "getting item")
	})

	t.Run("backend failure", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Search: &mockSearchService{},
			Items:  &mockItemService{err: errors.New("disk")},
		})
		require.NoError(t, err)

		_, err = server.handleItemResource(ctx, makeReadResourceRequest("sercha-kb://items/a"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting item")
	})
}
