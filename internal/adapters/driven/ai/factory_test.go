package ai

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
		wantErr  bool
	}{
		{"nil settings", nil, true, false},
		{"unconfigured", &domain.EmbeddingSettings{}, true, false},
		{"openai without key", &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}, true, false},
		{"ollama", &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"}, false, false},
		{"openai", &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Positive(t, svc.Dimensions())
			assert.NoError(t, svc.Close())
		})
	}
}

func TestCreateLLMService(t *testing.T) {
	svc, err := CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"})
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", svc.ModelName())

	svc, err = CreateLLMService(&domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk-test"})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	svc, err = CreateLLMService(&domain.LLMSettings{})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestCreateAndValidateLLMService_Reachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","created":1,"model":"m",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"pong"}}]}`)
	}))
	defer server.Close()

	svc, err := CreateAndValidateLLMService(t.Context(), &domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
		Model:    "m",
	})

	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.NoError(t, svc.Close())
}

func TestCreateVectorIndex(t *testing.T) {
	dir := t.TempDir()

	index, err := CreateVectorIndex(&domain.VectorIndexSettings{}, dir, 4)

	require.NoError(t, err)
	require.NotNil(t, index)
	assert.NoError(t, index.Close())
	assert.DirExists(t, dir+"/vectors")
}

func TestInitialise_TextOnly(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Search.Mode = domain.SearchModeTextOnly

	result := Initialise(t.Context(), &settings, t.TempDir(), nil)
	defer result.Close()

	assert.False(t, result.FellBack)
	assert.Empty(t, result.Warnings)
	assert.Nil(t, result.EmbeddingService)
	assert.Nil(t, result.VectorIndex)
	assert.Nil(t, result.LLMService)
	assert.Nil(t, result.Reranker)
}

func TestInitialise_FullModeWithoutProviders(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Search.Mode = domain.SearchModeFull

	result := Initialise(t.Context(), &settings, t.TempDir(), nil)
	defer result.Close()

	assert.True(t, result.FellBack)
	assert.Len(t, result.Warnings, 2)
	assert.Nil(t, result.VectorIndex)
	assert.Nil(t, result.LLMService)
}

func TestInitialise_UnreachableLLM(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Search.Mode = domain.SearchModeLLMAssisted
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama, BaseURL: "http://127.0.0.1:1"}

	result := Initialise(t.Context(), &settings, t.TempDir(), nil)
	defer result.Close()

	assert.True(t, result.FellBack)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "query expansion and reranking disabled")
}
