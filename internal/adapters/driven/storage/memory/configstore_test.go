package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	_, ok := store.Get("search.mode")
	assert.False(t, ok)

	assert.NoError(t, store.Set("search.mode", "hybrid"))
	val, ok := store.Get("search.mode")
	assert.True(t, ok)
	assert.Equal(t, "hybrid", val)

	assert.NoError(t, store.Set("search.mode", "full"))
	assert.Equal(t, "full", store.GetString("search.mode"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("int", 42)
	_ = store.Set("int64", int64(7))
	_ = store.Set("float", 2.5)
	_ = store.Set("bool", true)
	_ = store.Set("slice", []any{"a", 1, "b"})
	_ = store.Set("string", "text")

	assert.Equal(t, 42, store.GetInt("int"))
	assert.Equal(t, 7, store.GetInt("int64"))
	assert.Equal(t, 2, store.GetInt("float"))
	assert.Equal(t, 0, store.GetInt("string"))
	assert.Equal(t, 0, store.GetInt("missing"))

	assert.InDelta(t, 2.5, store.GetFloat("float"), 1e-9)
	assert.InDelta(t, 42.0, store.GetFloat("int"), 1e-9)
	assert.InDelta(t, 7.0, store.GetFloat("int64"), 1e-9)
	assert.Zero(t, store.GetFloat("string"))

	assert.True(t, store.GetBool("bool"))
	assert.False(t, store.GetBool("string"))

	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("slice"))
	assert.Nil(t, store.GetStringSlice("int"))
	assert.Empty(t, store.GetString("int"))
}

func TestConfigStore_PersistenceNoOps(t *testing.T) {
	store := NewConfigStore()

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", id)
			_ = store.Set(key, id)
			_ = store.GetInt(key)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key-%d", i)))
	}
}

func TestConfigStore_SeedAndSnapshot(t *testing.T) {
	seed := map[string]any{"search.mode": "full", "search.rrf_k": int64(30)}
	store := NewConfigStore(seed)

	assert.Equal(t, "full", store.GetString("search.mode"))
	assert.Equal(t, 30, store.GetInt("search.rrf_k"))

	// The seed map is copied, not aliased.
	_ = store.Set("search.mode", "hybrid")
	assert.Equal(t, "full", seed["search.mode"])

	snap := store.Snapshot()
	snap["search.mode"] = "text_only"
	assert.Equal(t, "hybrid", store.GetString("search.mode"))
}
