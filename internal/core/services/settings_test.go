package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Search, settings.Search)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.LLM.Provider, settings.LLM.Provider)
	assert.Equal(t, defaults.VectorIndex.Dimensions, settings.VectorIndex.Dimensions)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("search.mode", "hybrid")
	_ = store.Set("search.limit", 25)
	_ = store.Set("search.rrf_k", int64(40))
	_ = store.Set("search.hyde_timeout_ms", 1500)
	_ = store.Set("search.hyde_model", "llama3.2:1b")
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("llm.requests_per_second", 2.5)
	_ = store.Set("vector_index.path", "/tmp/vectors")
	_ = store.Set("storage.data_dir", "/tmp/data")
	_ = store.Set("identity.user_id", "alice")

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.SearchModeHybrid, settings.Search.Mode)
	assert.Equal(t, 25, settings.Search.Limit)
	assert.Equal(t, 40, settings.Search.RRFK)
	assert.Equal(t, 1500*time.Millisecond, settings.Search.HydeTimeout)
	assert.Equal(t, domain.DefaultLexicalTimeout, settings.Search.LexicalTimeout)
	assert.Equal(t, "llama3.2:1b", settings.Search.HydeModel)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.InDelta(t, 2.5, settings.LLM.RequestsPerSecond, 1e-9)
	assert.Equal(t, "/tmp/vectors", settings.VectorIndex.Path)
	assert.Equal(t, "/tmp/data", settings.Storage.DataDir)
	assert.Equal(t, "alice", settings.Identity.UserID)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("search.mode", "invalid_mode")
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("search.vector_timeout_ms", -5)

	service := NewSettingsService(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Search.Mode, settings.Search.Mode)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Search.VectorTimeout, settings.Search.VectorTimeout)
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	search := domain.DefaultSearchSettings()
	search.Mode = domain.SearchModeFull
	search.Limit = 7
	search.RerankTimeout = 4 * time.Second

	settings := &domain.AppSettings{
		Search: search,
		Embedding: domain.EmbeddingSettings{
			Provider: domain.AIProviderOpenAI,
			Model:    "text-embedding-3-small",
			APIKey:   "sk-test-key",
		},
		LLM: domain.LLMSettings{
			Provider:          domain.AIProviderOllama,
			Model:             "llama3.2",
			BaseURL:           "http://localhost:11434",
			RequestsPerSecond: 1,
		},
		VectorIndex: domain.VectorIndexSettings{
			Enabled:    true,
			Dimensions: 1536,
		},
		Identity: domain.IdentitySettings{UserID: "bob"},
	}

	err := service.Save(settings)
	require.NoError(t, err)

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, search, retrieved.Search)
	assert.Equal(t, domain.AIProviderOpenAI, retrieved.Embedding.Provider)
	assert.Equal(t, "sk-test-key", retrieved.Embedding.APIKey)
	assert.Equal(t, domain.AIProviderOllama, retrieved.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", retrieved.LLM.BaseURL)
	assert.InDelta(t, 1.0, retrieved.LLM.RequestsPerSecond, 1e-9)
	assert.True(t, retrieved.VectorIndex.Enabled)
	assert.Equal(t, 1536, retrieved.VectorIndex.Dimensions)
	assert.Equal(t, "bob", retrieved.Identity.UserID)
}

func TestSettingsService_Save_EmptyAPIKeyNotWritten(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	settings := domain.DefaultAppSettings()
	require.NoError(t, service.Save(&settings))

	_, exists := store.Get("llm.api_key")
	assert.False(t, exists)
	_, exists = store.Get("embedding.api_key")
	assert.False(t, exists)
}

func TestSettingsService_SetSearchMode(t *testing.T) {
	for _, mode := range domain.AllSearchModes() {
		t.Run(mode.String(), func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store, nil)

			require.NoError(t, service.SetSearchMode(mode))

			settings, _ := service.Get()
			assert.Equal(t, mode, settings.Search.Mode)
			assert.Equal(t, mode.RequiresEmbedding(), settings.VectorIndex.Enabled)
		})
	}
}

func TestSettingsService_SetSearchMode_Invalid(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	err := service.SetSearchMode(domain.SearchMode("semantic"))
	assert.Error(t, err)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	t.Run("ollama gets local base URL and default model", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOllama, "", ""))

		settings, _ := service.Get()
		assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
		assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
		assert.Equal(t, 768, settings.VectorIndex.Dimensions)
	})

	t.Run("openai updates dimensions", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk"))

		settings, _ := service.Get()
		assert.Equal(t, 3072, settings.VectorIndex.Dimensions)
		assert.Empty(t, settings.Embedding.BaseURL)
	})

	t.Run("openai requires key", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.Error(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))
	})

	t.Run("invalid provider", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(), nil)
		assert.Error(t, service.SetEmbeddingProvider(domain.AIProvider("cohere"), "", ""))
	})
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", "sk"))

	settings, _ := service.Get()
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Model)
	assert.Equal(t, "sk", settings.LLM.APIKey)

	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProvider("x"), "", ""))
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr bool
	}{
		{"text only needs nothing", map[string]any{"search.mode": "text_only"}, false},
		{"hybrid without embedding", map[string]any{"search.mode": "hybrid"}, true},
		{"hybrid with ollama embedding", map[string]any{
			"search.mode": "hybrid", "embedding.provider": "ollama",
		}, false},
		{"llm assisted without llm", map[string]any{"search.mode": "llm_assisted"}, true},
		{"full with both", map[string]any{
			"search.mode": "full", "embedding.provider": "ollama", "llm.provider": "ollama",
		}, false},
		{"full missing llm", map[string]any{
			"search.mode": "full", "embedding.provider": "ollama",
		}, true},
		{"negative rrf k", map[string]any{"search.rrf_k": -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			for k, v := range tt.values {
				_ = store.Set(k, v)
			}
			err := NewSettingsService(store, nil).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettingsService_Requires(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)

	assert.False(t, service.RequiresEmbedding())
	assert.False(t, service.RequiresLLM())

	_ = store.Set("search.mode", "full")
	assert.True(t, service.RequiresEmbedding())
	assert.True(t, service.RequiresLLM())
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

// failingConfigStore fails Set for one key.
type failingConfigStore struct {
	*memory.ConfigStore
	failOn string
}

func (f *failingConfigStore) Set(key string, value any) error {
	if key == f.failOn {
		return assert.AnError
	}
	return f.ConfigStore.Set(key, value)
}

func TestSettingsService_Save_Errors(t *testing.T) {
	keys := []string{
		"search.mode",
		"search.rrf_k",
		"embedding.provider",
		"embedding.model",
		"llm.provider",
		"llm.base_url",
		"llm.requests_per_second",
		"vector_index.enabled",
		"vector_index.dimensions",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			store := &failingConfigStore{ConfigStore: memory.NewConfigStore(), failOn: key}
			service := NewSettingsService(store, nil)

			settings := domain.DefaultAppSettings()
			err := service.Save(&settings)
			require.Error(t, err)
			assert.ErrorIs(t, err, assert.AnError)
		})
	}
}

// Mock AIConfigValidator for testing
type mockAIConfigValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ context.Context, _ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ context.Context, _ *domain.LLMSettings) error {
	return m.llmErr
}

func TestSettingsService_ValidateConfig(t *testing.T) {
	store := memory.NewConfigStore()

	assert.NoError(t, NewSettingsService(store, nil).ValidateEmbeddingConfig(t.Context()))
	assert.NoError(t, NewSettingsService(store, nil).ValidateLLMConfig(t.Context()))

	ok := NewSettingsService(store, &mockAIConfigValidator{})
	assert.NoError(t, ok.ValidateEmbeddingConfig(t.Context()))
	assert.NoError(t, ok.ValidateLLMConfig(t.Context()))

	failing := NewSettingsService(store, &mockAIConfigValidator{embedErr: assert.AnError, llmErr: assert.AnError})
	assert.Error(t, failing.ValidateEmbeddingConfig(t.Context()))
	assert.Error(t, failing.ValidateLLMConfig(t.Context()))
}

func TestSettingsService_SetIdentity(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)

	require.NoError(t, service.SetIdentity(" alice "))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "alice", settings.Identity.UserID)

	require.NoError(t, service.SetIdentity(""))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Empty(t, settings.Identity.UserID)
}
