package domain

import (
	"slices"
	"time"
)

// SearchFilters are caller-supplied constraints on a search. Zero values
// mean "no constraint".
type SearchFilters struct {
	// Tags is a category allow-list. A chunk matches if it carries any of them.
	Tags []string

	// ItemIDs restricts results to the listed items.
	ItemIDs []string

	// MinSize and MaxSize bound the item byte size. Zero disables a bound.
	MinSize int64
	MaxSize int64

	// CreatedAfter and CreatedBefore bound the creation time.
	CreatedAfter  time.Time
	CreatedBefore time.Time

	// Limit is the maximum number of results. Zero uses the configured default.
	Limit int
}

// IsEmpty returns true if no constraint is set.
func (f SearchFilters) IsEmpty() bool {
	return len(f.Tags) == 0 && len(f.ItemIDs) == 0 &&
		f.MinSize == 0 && f.MaxSize == 0 &&
		f.CreatedAfter.IsZero() && f.CreatedBefore.IsZero()
}

// Matches reports whether a chunk satisfies the filters.
func (f SearchFilters) Matches(c *Chunk) bool {
	if len(f.ItemIDs) > 0 && !slices.Contains(f.ItemIDs, c.ItemID) {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(c.Tags, func(t string) bool {
		return slices.Contains(f.Tags, t)
	}) {
		return false
	}
	if f.MinSize > 0 && c.Size < f.MinSize {
		return false
	}
	if f.MaxSize > 0 && c.Size > f.MaxSize {
		return false
	}
	if !f.CreatedAfter.IsZero() && c.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	if !f.CreatedBefore.IsZero() && c.CreatedAt.After(f.CreatedBefore) {
		return false
	}
	return true
}

// SearchConfig toggles optional request behaviour.
type SearchConfig struct {
	// Previews echoes bounded chunk text back in results.
	Previews bool

	// UseScores enables the rerank stage.
	UseScores bool

	// Model overrides the LLM model used for query expansion.
	Model string
}

// SearchRequest is a single retrieval request.
type SearchRequest struct {
	// Query is the natural-language query text.
	Query string

	// Modalities scopes the search. Empty means all modalities.
	Modalities []Modality

	Filters SearchFilters
	Config  SearchConfig
}

// ResultMetadata is the item metadata returned with each result.
type ResultMetadata struct {
	Title       string           `json:"title" yaml:"title"`
	Modality    Modality         `json:"modality" yaml:"modality"`
	Tags        []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	ProjectID   string           `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Sensitivity SensitivityLevel `json:"sensitivity" yaml:"sensitivity"`
	Popularity  float64          `json:"popularity" yaml:"popularity"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
}

// SearchResult is a single ranked item.
type SearchResult struct {
	// ItemID identifies the matched item.
	ItemID string `json:"item_id" yaml:"item_id"`

	// Score is the final boosted score.
	Score float64 `json:"score" yaml:"score"`

	// MatchedChunks are the chunk IDs that contributed, best first.
	MatchedChunks []string `json:"matched_chunks" yaml:"matched_chunks"`

	// Preview is bounded chunk text. Only set when previews are requested.
	Preview string `json:"preview,omitempty" yaml:"preview,omitempty"`

	Metadata ResultMetadata `json:"metadata" yaml:"metadata"`
}
