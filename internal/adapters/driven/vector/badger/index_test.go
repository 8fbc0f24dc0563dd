package badger

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

func newTestIndex(t *testing.T, dims int) *Index {
	t.Helper()
	idx, err := New(Options{InMemory: true, Dimensions: dims})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func stored(id string, mutate ...func(*domain.Chunk)) domain.Chunk {
	c := domain.Chunk{
		ID:             id,
		ItemID:         "item-" + id,
		Modality:       domain.ModalityDocument,
		IndexingStatus: domain.StatusStored,
		Popularity:     1,
	}
	for _, m := range mutate {
		m(&c)
	}
	return c
}

func ids(hits []driven.VectorHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ChunkID
	}
	return out
}

func TestIndex_SearchOrdersBySimilarity(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, stored("a"), []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, stored("b"), []float32{1, 1}))
	require.NoError(t, idx.Upsert(ctx, stored("c"), []float32{0, 1}))

	hits, err := idx.Search(ctx, driven.VectorQuery{Embedding: []float32{1, 0}, TopK: 10})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(hits))
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.InDelta(t, 0.7071, hits[1].Similarity, 1e-3)
	assert.InDelta(t, 0.0, hits[2].Similarity, 1e-6)
}

func TestIndex_TopKAndTies(t *testing.T) {
	idx := newTestIndex(t, 0)
	ctx := context.Background()
	for _, id := range []string{"z", "m", "a"} {
		require.NoError(t, idx.Upsert(ctx, stored(id), []float32{2, 0}))
	}

	hits, err := idx.Search(ctx, driven.VectorQuery{Embedding: []float32{1, 0}, TopK: 2})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m"}, ids(hits))
}

func TestIndex_OnlyStoredChunks(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, stored("ok"), []float32{1, 0}))
	for _, status := range []domain.IndexingStatus{domain.StatusRaw, domain.StatusQueued, domain.StatusFailed} {
		s := status
		require.NoError(t, idx.Upsert(ctx, stored(string(s), func(c *domain.Chunk) { c.IndexingStatus = s }), []float32{1, 0}))
	}

	hits, err := idx.Search(ctx, driven.VectorQuery{Embedding: []float32{1, 0}, TopK: 10})

	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, ids(hits))
}

func TestIndex_ModalityFilter(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, stored("doc"), []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, stored("mail", func(c *domain.Chunk) { c.Modality = domain.ModalityEmail }), []float32{1, 0}))

	hits, err := idx.Search(ctx, driven.VectorQuery{
		Embedding:  []float32{1, 0},
		Modalities: []domain.Modality{domain.ModalityEmail},
		TopK:       10,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"mail"}, ids(hits))
}

func TestIndex_AccessPredicate(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	vec := []float32{1, 0}
	require.NoError(t, idx.Upsert(ctx, stored("pub"), vec))
	require.NoError(t, idx.Upsert(ctx, stored("basicP", func(c *domain.Chunk) {
		c.Sensitivity, c.ProjectID = domain.SensitivityBasic, "P"
	}), vec))
	require.NoError(t, idx.Upsert(ctx, stored("confP", func(c *domain.Chunk) {
		c.Sensitivity, c.ProjectID = domain.SensitivityConfidential, "P"
	}), vec))
	require.NoError(t, idx.Upsert(ctx, stored("attached", func(c *domain.Chunk) {
		c.Sensitivity, c.People = domain.SensitivityConfidential, []string{"p1"}
	}), vec))
	require.NoError(t, idx.Upsert(ctx, stored("unclassified", func(c *domain.Chunk) {
		c.Sensitivity = domain.SensitivityBasic
	}), vec))

	tests := []struct {
		name   string
		access *domain.AccessFilter
		want   []string
	}{
		{"unrestricted", nil, []string{"attached", "basicP", "confP", "pub", "unclassified"}},
		{"public only", &domain.AccessFilter{IncludePublic: true}, []string{"pub"}},
		{"contributor on P", &domain.AccessFilter{
			Conditions:    []domain.AccessCondition{{ProjectID: "P", Allowed: domain.ProjectRoleContributor.AllowedSensitivities()}},
			PersonID:      "p1",
			IncludePublic: true,
		}, []string{"attached", "basicP", "pub"}},
		{"nothing granted", &domain.AccessFilter{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Search(ctx, driven.VectorQuery{Embedding: vec, Access: tt.access, TopK: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(hits))
		})
	}
}

func TestIndex_HitCarriesMetadata(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	chunk := stored("a", func(c *domain.Chunk) {
		c.Title = "Runbook"
		c.Content = "restart the broker"
		c.Tags = []string{"ops"}
		c.ProjectID = "P"
		c.Sensitivity = domain.SensitivityInternal
		c.Popularity = 3
		c.CreatedAt = created
	})
	require.NoError(t, idx.Upsert(ctx, chunk, []float32{1, 0}))

	hits, err := idx.Search(ctx, driven.VectorQuery{Embedding: []float32{1, 0}, TopK: 1})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	got := hits[0].Chunk
	assert.Equal(t, "item-a", got.ItemID)
	assert.Equal(t, "Runbook", got.Title)
	assert.Equal(t, "restart the broker", got.Content)
	assert.Equal(t, []string{"ops"}, got.Tags)
	assert.Equal(t, domain.SensitivityInternal, got.Sensitivity)
	assert.InDelta(t, 3.0, got.Popularity, 1e-9)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestIndex_UpsertReplaces(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, stored("a"), []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, stored("a"), []float32{0, 1}))

	hits, err := idx.Search(ctx, driven.VectorQuery{Embedding: []float32{0, 1}, TopK: 10})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestIndex_Delete(t *testing.T) {
	idx := newTestIndex(t, 2)
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, stored("a"), []float32{1, 0}))

	require.NoError(t, idx.Delete(ctx, "a"))
	require.NoError(t, idx.Delete(ctx, "missing"))

	hits, err := idx.Search(ctx, driven.VectorQuery{Embedding: []float32{1, 0}, TopK: 10})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_InvalidInput(t *testing.T) {
	idx := newTestIndex(t, 3)
	ctx := context.Background()

	err := idx.Upsert(ctx, stored("a"), []float32{1, 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = idx.Upsert(ctx, stored(""), []float32{1, 0, 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = idx.Search(ctx, driven.VectorQuery{TopK: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	hits, err := idx.Search(ctx, driven.VectorQuery{Embedding: []float32{1, 0, 0}})
	assert.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndex_CancelledContext(t *testing.T) {
	idx := newTestIndex(t, 2)
	require.NoError(t, idx.Upsert(context.Background(), stored("a"), []float32{1, 0}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.Search(ctx, driven.VectorQuery{Embedding: []float32{1, 0}, TopK: 10})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIndex_PersistsOnDisk(t *testing.T) {
	dir, err := os.MkdirTemp("", "sercha-kb-vectors-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	ctx := context.Background()

	idx, err := New(Options{Dir: dir, Dimensions: 2})
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, stored("a"), []float32{1, 0}))
	require.NoError(t, idx.Close())

	reopened, err := New(Options{Dir: dir, Dimensions: 2})
	require.NoError(t, err)
	defer reopened.Close()

	hits, err := reopened.Search(ctx, driven.VectorQuery{Embedding: []float32{1, 0}, TopK: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(hits))
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{2, 2}, []float32{1, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{0, 0}, []float32{1, 1}), 1e-9)
}

func TestBadgerLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)
	logger.SetVerbose(false)

	l := &badgerLogger{scope: logger.For("vector")}
	l.Infof("compaction %d\n", 1)
	l.Errorf("value log %s\n", "corrupt")

	assert.Equal(t, "[ERROR] vector: value log corrupt\n", buf.String())
}
