package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

func TestNewPromptStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".sercha-kb", "prompts"), store.Dir())
}

func TestNewPromptStore_NoIO(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	_, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.NoDirExists(t, dir)
}

func TestPromptStore_EnsureDir_WritesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.EnsureDir())

	for _, f := range []string{"hyde.txt", "rerank.txt", "README.md"} {
		assert.FileExists(t, filepath.Join(dir, f))
	}
}

func TestPromptStore_Load_Defaults(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	hyde, err := store.Load(driven.PromptHyDE)
	require.NoError(t, err)
	assert.Contains(t, hyde, "as if it were an excerpt")

	rerank, err := store.Load(driven.PromptRerank)
	require.NoError(t, err)
	assert.Contains(t, rerank, "JSON array")
}

func TestPromptStore_Load_CustomContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hyde.txt"), []byte("  answer tersely\n"), 0600))
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptHyDE)

	require.NoError(t, err)
	assert.Equal(t, "answer tersely", prompt)

	data, err := os.ReadFile(filepath.Join(dir, "hyde.txt"))
	require.NoError(t, err)
	assert.Equal(t, "  answer tersely\n", string(data))
}

func TestPromptStore_Load_FallsBack(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.EnsureDir())

	require.NoError(t, os.Remove(filepath.Join(dir, "rerank.txt")))
	prompt, err := store.Load(driven.PromptRerank)
	require.NoError(t, err)
	def, _ := DefaultPrompt(driven.PromptRerank)
	assert.Equal(t, def, prompt)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hyde.txt"), []byte("   \n"), 0600))
	prompt, err = store.Load(driven.PromptHyDE)
	require.NoError(t, err)
	def, _ = DefaultPrompt(driven.PromptHyDE)
	assert.Equal(t, def, prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestPromptStore_CacheAndReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	path := filepath.Join(dir, "hyde.txt")

	require.NoError(t, store.EnsureDir())
	require.NoError(t, os.WriteFile(path, []byte("first"), 0600))
	first, err := store.Load(driven.PromptHyDE)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("second"), 0600))
	cached, err := store.Load(driven.PromptHyDE)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptHyDE)
	require.NoError(t, err)
	assert.Equal(t, "second", fresh)
}

func TestPromptStore_UnwritableDirFallsBack(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	assert.Error(t, store.EnsureDir())
	prompt, err := store.Load(driven.PromptHyDE)
	require.NoError(t, err)
	assert.NotEmpty(t, prompt)

	_, err = store.Load("unknown")
	assert.Error(t, err)
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				store.Reload()
			}
			prompt, err := store.Load(driven.PromptRerank)
			assert.NoError(t, err)
			assert.NotEmpty(t, prompt)
		}(i)
	}
	wg.Wait()
}
