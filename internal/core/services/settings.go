package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySearchMode          = "search.mode"
	keySearchLimit         = "search.limit"
	keySearchRRFK          = "search.rrf_k"
	keySearchCandidateMult = "search.candidate_multiplier"
	keySearchRerankMult    = "search.rerank_multiplier"
	keySearchLexicalTO     = "search.lexical_timeout_ms"
	keySearchVectorTO      = "search.vector_timeout_ms"
	keySearchHydeTO        = "search.hyde_timeout_ms"
	keySearchRerankTO      = "search.rerank_timeout_ms"
	keySearchHydeModel     = "search.hyde_model"
	keyEmbedProvider       = "embedding.provider"
	keyEmbedModel          = "embedding.model"
	keyEmbedBaseURL        = "embedding.base_url"
	keyEmbedAPIKey         = "embedding.api_key"
	keyLLMProvider         = "llm.provider"
	keyLLMModel            = "llm.model"
	keyLLMBaseURL          = "llm.base_url"
	keyLLMAPIKey           = "llm.api_key"
	keyLLMRateLimit        = "llm.requests_per_second"
	keyVectorEnabled       = "vector_index.enabled"
	keyVectorPath          = "vector_index.path"
	keyVectorDims          = "vector_index.dimensions"
	keyStorageDataDir      = "storage.data_dir"
	keyIdentityUserID      = "identity.user_id"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Search: domain.SearchSettings{
			Mode:                s.getSearchMode(defaults.Search.Mode),
			Limit:               s.getInt(keySearchLimit, defaults.Search.Limit),
			RRFK:                s.getInt(keySearchRRFK, defaults.Search.RRFK),
			CandidateMultiplier: s.getInt(keySearchCandidateMult, defaults.Search.CandidateMultiplier),
			RerankMultiplier:    s.getInt(keySearchRerankMult, defaults.Search.RerankMultiplier),
			LexicalTimeout:      s.getMillis(keySearchLexicalTO, defaults.Search.LexicalTimeout),
			VectorTimeout:       s.getMillis(keySearchVectorTO, defaults.Search.VectorTimeout),
			HydeTimeout:         s.getMillis(keySearchHydeTO, defaults.Search.HydeTimeout),
			RerankTimeout:       s.getMillis(keySearchRerankTO, defaults.Search.RerankTimeout),
			HydeModel:           s.configStore.GetString(keySearchHydeModel),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyLLMAPIKey),

			RequestsPerSecond: s.configStore.GetFloat(keyLLMRateLimit),
		},
		VectorIndex: domain.VectorIndexSettings{
			Enabled:    s.getBool(keyVectorEnabled, defaults.VectorIndex.Enabled),
			Path:       s.configStore.GetString(keyVectorPath),
			Dimensions: s.getInt(keyVectorDims, defaults.VectorIndex.Dimensions),
		},
		Storage: domain.StorageSettings{
			DataDir: s.configStore.GetString(keyStorageDataDir),
		},
		Identity: domain.IdentitySettings{
			UserID: s.configStore.GetString(keyIdentityUserID),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save search settings
	search := settings.Search
	for _, kv := range []struct {
		key string
		val any
	}{
		{keySearchMode, search.Mode.String()},
		{keySearchLimit, search.Limit},
		{keySearchRRFK, search.RRFK},
		{keySearchCandidateMult, search.CandidateMultiplier},
		{keySearchRerankMult, search.RerankMultiplier},
		{keySearchLexicalTO, search.LexicalTimeout.Milliseconds()},
		{keySearchVectorTO, search.VectorTimeout.Milliseconds()},
		{keySearchHydeTO, search.HydeTimeout.Milliseconds()},
		{keySearchRerankTO, search.RerankTimeout.Milliseconds()},
		{keySearchHydeModel, search.HydeModel},
	} {
		if err := s.configStore.Set(kv.key, kv.val); err != nil {
			return fmt.Errorf("save %s: %w", kv.key, err)
		}
	}

	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	// Save LLM settings
	if err := s.configStore.Set(keyLLMProvider, settings.LLM.Provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, settings.LLM.Model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if err := s.configStore.Set(keyLLMBaseURL, settings.LLM.BaseURL); err != nil {
		return fmt.Errorf("save llm base_url: %w", err)
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if err := s.configStore.Set(keyLLMRateLimit, settings.LLM.RequestsPerSecond); err != nil {
		return fmt.Errorf("save llm requests_per_second: %w", err)
	}

	// Save vector index settings
	if err := s.configStore.Set(keyVectorEnabled, settings.VectorIndex.Enabled); err != nil {
		return fmt.Errorf("save vector enabled: %w", err)
	}
	if err := s.configStore.Set(keyVectorDims, settings.VectorIndex.Dimensions); err != nil {
		return fmt.Errorf("save vector dimensions: %w", err)
	}
	if settings.VectorIndex.Path != "" {
		if err := s.configStore.Set(keyVectorPath, settings.VectorIndex.Path); err != nil {
			return fmt.Errorf("save vector path: %w", err)
		}
	}
	if settings.Storage.DataDir != "" {
		if err := s.configStore.Set(keyStorageDataDir, settings.Storage.DataDir); err != nil {
			return fmt.Errorf("save data_dir: %w", err)
		}
	}
	// Always written so an empty id clears the identity.
	if err := s.configStore.Set(keyIdentityUserID, settings.Identity.UserID); err != nil {
		return fmt.Errorf("save identity user_id: %w", err)
	}

	return nil
}

// SetSearchMode updates the search mode.
func (s *SettingsService) SetSearchMode(mode domain.SearchMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("invalid search mode: %s", mode)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Search.Mode = mode

	// Auto-enable vector index if semantic search is needed
	if mode.RequiresEmbedding() {
		settings.VectorIndex.Enabled = true
	}

	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	if _, ok := domain.DefaultEmbeddingModels()[provider]; !ok {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		defaults := domain.DefaultEmbeddingModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	// Set API key
	settings.Embedding.APIKey = apiKey

	// Update vector dimensions based on model
	dims := domain.EmbeddingDimensions()
	if d, ok := dims[settings.Embedding.Model]; ok {
		settings.VectorIndex.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		defaults := domain.DefaultLLMModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.LLM.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.LLM.BaseURL = ""
	}

	// Set API key
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks if current settings are valid for the configured mode.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	// Validate search mode
	if !settings.Search.Mode.IsValid() {
		return fmt.Errorf("invalid search mode: %s", settings.Search.Mode)
	}
	if settings.Search.RRFK <= 0 || settings.Search.CandidateMultiplier <= 0 || settings.Search.RerankMultiplier <= 0 {
		return fmt.Errorf("%w: search multipliers and rrf_k must be positive", domain.ErrInvalidInput)
	}

	// Check embedding configuration if required
	if settings.Search.Mode.RequiresEmbedding() {
		if !settings.Embedding.IsConfigured() {
			return fmt.Errorf(
				"search mode %q requires embedding provider to be configured",
				settings.Search.Mode.Description(),
			)
		}
	}

	// Check LLM configuration if required
	if settings.Search.Mode.RequiresLLM() {
		if !settings.LLM.IsConfigured() {
			return fmt.Errorf(
				"search mode %q requires LLM provider to be configured",
				settings.Search.Mode.Description(),
			)
		}
	}

	return nil
}

// RequiresEmbedding returns true if current mode needs embedding.
func (s *SettingsService) RequiresEmbedding() bool {
	settings, err := s.Get()
	if err != nil {
		return false
	}
	return settings.Search.Mode.RequiresEmbedding()
}

// RequiresLLM returns true if current mode needs LLM.
func (s *SettingsService) RequiresLLM() bool {
	settings, err := s.Get()
	if err != nil {
		return false
	}
	return settings.Search.Mode.RequiresLLM()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// SetIdentity sets the user requests act as. Empty clears it.
func (s *SettingsService) SetIdentity(userID string) error {
	if err := s.configStore.Set(keyIdentityUserID, strings.TrimSpace(userID)); err != nil {
		return fmt.Errorf("save identity user_id: %w", err)
	}
	return nil
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getSearchMode(defaultVal domain.SearchMode) domain.SearchMode {
	val := s.configStore.GetString(keySearchMode)
	if val == "" {
		return defaultVal
	}
	mode := domain.SearchMode(val)
	if !mode.IsValid() {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	ms := s.configStore.GetInt(key)
	if ms <= 0 {
		return defaultVal
	}
	return time.Duration(ms) * time.Millisecond
}
