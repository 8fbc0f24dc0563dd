package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string   `json:"query" jsonschema:"natural-language search query"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of results (default from settings)"`
	Modalities []string `json:"modalities,omitempty" jsonschema:"restrict to content kinds such as document, email, issue"`
	Tags       []string `json:"tags,omitempty" jsonschema:"only items carrying any of these tags"`
	ItemIDs    []string `json:"item_ids,omitempty" jsonschema:"only these item ids"`
	After      string   `json:"created_after,omitempty" jsonschema:"RFC 3339 lower bound on creation time"`
	Before     string   `json:"created_before,omitempty" jsonschema:"RFC 3339 upper bound on creation time"`
	Previews   bool     `json:"previews,omitempty" jsonschema:"include a short text preview per result"`
	Rerank     bool     `json:"rerank,omitempty" jsonschema:"reorder results with the configured LLM"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ItemID        string   `json:"item_id"`
	URI           string   `json:"uri"`
	Title         string   `json:"title"`
	Modality      string   `json:"modality"`
	Tags          []string `json:"tags,omitempty"`
	Score         float64  `json:"score"`
	MatchedChunks []string `json:"matched_chunks"`
	Preview       string   `json:"preview,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the knowledge base for items the configured identity may read",
	}, s.handleSearch)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	req, err := input.request()
	if err != nil {
		return nil, SearchOutput{}, err
	}

	results, err := s.ports.Search.Search(ctx, s.ports.Subject, req)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	s.log.Debug("search %q returned %d results", input.Query, len(results))

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		r := &results[i]
		out := SearchResultOutput{
			ItemID:        r.ItemID,
			URI:           itemURI(r.ItemID),
			Title:         r.Metadata.Title,
			Modality:      r.Metadata.Modality.String(),
			Tags:          r.Metadata.Tags,
			Score:         r.Score,
			MatchedChunks: r.MatchedChunks,
			Preview:       r.Preview,
		}
		if !r.Metadata.CreatedAt.IsZero() {
			out.CreatedAt = r.Metadata.CreatedAt.UTC().Format(time.RFC3339)
		}
		output.Results[i] = out
	}

	return nil, output, nil
}

func (in SearchInput) request() (domain.SearchRequest, error) {
	req := domain.SearchRequest{
		Query: in.Query,
		Filters: domain.SearchFilters{
			Tags:    in.Tags,
			ItemIDs: in.ItemIDs,
			Limit:   in.Limit,
		},
		Config: domain.SearchConfig{
			Previews:  in.Previews,
			UseScores: in.Rerank,
		},
	}
	for _, m := range in.Modalities {
		modality := domain.Modality(m)
		if !modality.IsValid() {
			return req, fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidInput, m)
		}
		req.Modalities = append(req.Modalities, modality)
	}

	var err error
	if req.Filters.CreatedAfter, err = parseTime(in.After); err != nil {
		return req, err
	}
	if req.Filters.CreatedBefore, err = parseTime(in.Before); err != nil {
		return req, err
	}
	return req, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q: %w", domain.ErrInvalidInput, s, err)
	}
	return t, nil
}
