package domain

import "time"

const unknownDescription = "Unknown"

// SearchMode selects which retrieval paths a search fans out to.
type SearchMode string

// Available search modes.
const (
	// SearchModeTextOnly uses only the lexical index.
	SearchModeTextOnly SearchMode = "text_only"

	// SearchModeHybrid combines lexical and vector search.
	SearchModeHybrid SearchMode = "hybrid"

	// SearchModeLLMAssisted uses lexical search with HyDE expansion.
	SearchModeLLMAssisted SearchMode = "llm_assisted"

	// SearchModeFull combines lexical, vector and HyDE expansion.
	SearchModeFull SearchMode = "full"
)

// IsValid returns true if the search mode is recognised.
func (m SearchMode) IsValid() bool {
	switch m {
	case SearchModeTextOnly, SearchModeHybrid, SearchModeLLMAssisted, SearchModeFull:
		return true
	default:
		return false
	}
}

// RequiresEmbedding returns true if this mode needs an embedding provider.
func (m SearchMode) RequiresEmbedding() bool {
	return m == SearchModeHybrid || m == SearchModeFull
}

// RequiresLLM returns true if this mode needs an LLM provider.
func (m SearchMode) RequiresLLM() bool {
	return m == SearchModeLLMAssisted || m == SearchModeFull
}

// String returns the string representation.
func (m SearchMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m SearchMode) Description() string {
	switch m {
	case SearchModeTextOnly:
		return "Text Only (lexical search)"
	case SearchModeHybrid:
		return "Hybrid (lexical + vector search)"
	case SearchModeLLMAssisted:
		return "LLM Assisted (lexical + HyDE expansion)"
	case SearchModeFull:
		return "Full (lexical + vector + HyDE expansion)"
	default:
		return unknownDescription
	}
}

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local OpenAI-compatible server such as Ollama.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// Default search tuning.
const (
	DefaultResultLimit         = 10
	DefaultRRFK                = 60
	DefaultCandidateMultiplier = 5
	DefaultRerankMultiplier    = 3
	DefaultLexicalTimeout      = 2 * time.Second
	DefaultVectorTimeout       = 3 * time.Second
	DefaultHydeTimeout         = 5 * time.Second
	DefaultRerankTimeout       = 10 * time.Second
)

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// Mode is the search retrieval mode.
	Mode SearchMode

	// Limit is the default result count when a request does not set one.
	Limit int

	// RRFK is the reciprocal rank fusion damping constant.
	RRFK int

	// CandidateMultiplier scales the per-backend over-fetch.
	CandidateMultiplier int

	// RerankMultiplier scales how many fused candidates reach the reranker.
	RerankMultiplier int

	// Per-call timeouts.
	LexicalTimeout time.Duration
	VectorTimeout  time.Duration
	HydeTimeout    time.Duration
	RerankTimeout  time.Duration

	// HydeModel is the default model used for query expansion.
	HydeModel string
}

// UsesVector returns true if the mode fans out to the vector index.
func (s SearchSettings) UsesVector() bool {
	return s.Mode.RequiresEmbedding()
}

// UsesHyde returns true if the mode expands queries.
func (s SearchSettings) UsesHyde() bool {
	return s.Mode.RequiresLLM()
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond caps outbound LLM calls. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Enabled indicates whether vector search is active.
	Enabled bool

	// Path is the badger directory. Empty uses <data_dir>/vectors.
	Path string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// StorageSettings holds local storage configuration.
type StorageSettings struct {
	// DataDir holds the SQLite database and the vector index.
	DataDir string
}

// IdentitySettings names the identity used by CLI and MCP requests.
type IdentitySettings struct {
	UserID string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Search      SearchSettings
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorIndex VectorIndexSettings
	Storage     StorageSettings
	Identity    IdentitySettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features are left unconfigured until the user sets them.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Search:    DefaultSearchSettings(),
		Embedding: EmbeddingSettings{},
		LLM:       LLMSettings{},
		VectorIndex: VectorIndexSettings{
			Enabled:    false,
			Dimensions: 768, // nomic-embed-text
		},
	}
}

// DefaultSearchSettings returns the default search tuning.
func DefaultSearchSettings() SearchSettings {
	return SearchSettings{
		Mode:                SearchModeTextOnly,
		Limit:               DefaultResultLimit,
		RRFK:                DefaultRRFK,
		CandidateMultiplier: DefaultCandidateMultiplier,
		RerankMultiplier:    DefaultRerankMultiplier,
		LexicalTimeout:      DefaultLexicalTimeout,
		VectorTimeout:       DefaultVectorTimeout,
		HydeTimeout:         DefaultHydeTimeout,
		RerankTimeout:       DefaultRerankTimeout,
	}
}

// AllSearchModes returns all available search modes.
func AllSearchModes() []SearchMode {
	return []SearchMode{
		SearchModeTextOnly,
		SearchModeHybrid,
		SearchModeLLMAssisted,
		SearchModeFull,
	}
}

// AllAIProviders returns every provider, local first.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
	}
}
