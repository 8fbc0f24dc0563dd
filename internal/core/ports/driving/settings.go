package driving

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// SettingsService reads and writes the persisted configuration. Changes take
// effect for new processes, and for a running MCP server on the next reload.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error

	// SetSearchMode selects which retrieval paths run. Modes that need
	// vectors also enable the vector index.
	SetSearchMode(mode domain.SearchMode) error

	// SetEmbeddingProvider and SetLLMProvider reject a missing API key for
	// providers that need one. An empty model selects the provider default.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetIdentity sets the user CLI and MCP requests act as. Empty clears it.
	SetIdentity(userID string) error

	// Validate reports settings the current mode cannot run with.
	Validate() error

	RequiresEmbedding() bool
	RequiresLLM() bool
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig and ValidateLLMConfig contact the configured
	// provider. They return nil when no provider is set.
	ValidateEmbeddingConfig(ctx context.Context) error
	ValidateLLMConfig(ctx context.Context) error
}
