package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSearchFilters_IsEmpty(t *testing.T) {
	assert.True(t, SearchFilters{}.IsEmpty())
	assert.True(t, SearchFilters{Limit: 5}.IsEmpty())
	assert.False(t, SearchFilters{Tags: []string{"go"}}.IsEmpty())
	assert.False(t, SearchFilters{MaxSize: 10}.IsEmpty())
}

func TestSearchFilters_Matches(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	chunk := &Chunk{
		ItemID:    "item-1",
		Tags:      []string{"go", "concurrency"},
		Size:      2048,
		CreatedAt: created,
	}

	tests := []struct {
		name    string
		filters SearchFilters
		want    bool
	}{
		{"no filters", SearchFilters{}, true},
		{"item allowed", SearchFilters{ItemIDs: []string{"item-1", "item-2"}}, true},
		{"item not allowed", SearchFilters{ItemIDs: []string{"item-2"}}, false},
		{"tag overlap", SearchFilters{Tags: []string{"rust", "go"}}, true},
		{"no tag overlap", SearchFilters{Tags: []string{"rust"}}, false},
		{"size in range", SearchFilters{MinSize: 1024, MaxSize: 4096}, true},
		{"too small", SearchFilters{MinSize: 4096}, false},
		{"too large", SearchFilters{MaxSize: 1024}, false},
		{"created after", SearchFilters{CreatedAfter: created.Add(-time.Hour)}, true},
		{"not created after", SearchFilters{CreatedAfter: created.Add(time.Hour)}, false},
		{"created before", SearchFilters{CreatedBefore: created.Add(time.Hour)}, true},
		{"not created before", SearchFilters{CreatedBefore: created.Add(-time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Matches(chunk))
		})
	}
}

func TestChunkFromItem(t *testing.T) {
	item := &Item{
		ID:             "item-1",
		Modality:       ModalityDocument,
		Title:          "Go Channels",
		Tags:           []string{"go"},
		Sensitivity:    SensitivityInternal,
		ProjectID:      "p1",
		CreatorID:      "u1",
		People:         []string{"person-1"},
		IndexingStatus: StatusStored,
		Popularity:     2,
	}

	c := ChunkFromItem(item, "c1", "text", 3)
	assert.Equal(t, "item-1", c.ItemID)
	assert.Equal(t, 3, c.Position)
	assert.Equal(t, "Go Channels", c.Title)
	assert.Equal(t, SensitivityInternal, c.ResourceSensitivity())
	assert.Equal(t, "p1", c.ResourceProject())
	assert.Equal(t, "u1", c.ResourceCreator())
	assert.Equal(t, []string{"person-1"}, c.AttachedPeople())
	assert.Equal(t, StatusStored, c.IndexingStatus)

	c.Tags[0] = "changed"
	assert.Equal(t, "go", item.Tags[0])
}

func TestModality_IsValid(t *testing.T) {
	for _, m := range AllModalities() {
		assert.True(t, m.IsValid())
	}
	assert.False(t, Modality("video").IsValid())
}

func TestIndexingStatus_IsValid(t *testing.T) {
	assert.True(t, StatusStored.IsValid())
	assert.True(t, StatusRaw.IsValid())
	assert.False(t, IndexingStatus("stored").IsValid())
}

func TestUser_Subject(t *testing.T) {
	u := &User{ID: "u1", PersonID: "person-1", Scopes: []string{"read", ScopeSuperadmin}}
	assert.Equal(t, "u1", u.SubjectID())
	assert.Equal(t, "person-1", u.LinkedPersonID())
	assert.True(t, u.HasScope(ScopeSuperadmin))
	assert.False(t, u.HasScope("write"))
}
