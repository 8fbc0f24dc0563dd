package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

const uriScheme = "sercha-kb://"

func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "items/{itemId}",
		Name:        "item",
		Description: "Metadata and chunk text of an item",
		MIMEType:    "application/json",
	}, s.handleItemResource)
}

type itemResource struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Modality    string   `json:"modality"`
	Tags        []string `json:"tags,omitempty"`
	ProjectID   string   `json:"project_id,omitempty"`
	Sensitivity string   `json:"sensitivity"`
	Status      string   `json:"status"`
	CreatedAt   string   `json:"created_at,omitempty"`
	Chunks      []string `json:"chunks"`
}

func (s *Server) handleItemResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Items == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id := extractItemID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	item, chunks, err := s.ports.Items.Get(ctx, s.ports.Subject, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	out := itemResource{
		ID:          item.ID,
		Title:       item.Title,
		Modality:    item.Modality.String(),
		Tags:        item.Tags,
		ProjectID:   item.ProjectID,
		Sensitivity: item.Sensitivity.String(),
		Status:      string(item.IndexingStatus),
		Chunks:      make([]string, len(chunks)),
	}
	if !item.CreatedAt.IsZero() {
		out.CreatedAt = item.CreatedAt.UTC().Format(time.RFC3339)
	}
	for i := range chunks {
		out.Chunks[i] = chunks[i].Content
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling item: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func itemURI(id string) string {
	return uriScheme + "items/" + id
}

// extractItemID extracts the id from sercha-kb://items/{itemId}.
func extractItemID(uri string) string {
	const prefix = uriScheme + "items/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
