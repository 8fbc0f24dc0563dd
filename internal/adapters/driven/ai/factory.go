// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	localembed "github.com/custodia-labs/sercha-kb/internal/adapters/driven/embedding/local"
	openaiembed "github.com/custodia-labs/sercha-kb/internal/adapters/driven/embedding/openai"
	localllm "github.com/custodia-labs/sercha-kb/internal/adapters/driven/llm/local"
	openaillm "github.com/custodia-labs/sercha-kb/internal/adapters/driven/llm/openai"
	llmrerank "github.com/custodia-labs/sercha-kb/internal/adapters/driven/rerank/llm"
	"github.com/custodia-labs/sercha-kb/internal/adapters/driven/vector/badger"
	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.VectorIndex
	Reranker         driven.Reranker
	PromptStore      driven.PromptStore // User-customisable prompt templates.
	Warnings         []string           // Non-fatal issues that caused fallback.
	FellBack         bool               // True if the configured mode could not be served in full.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

func (r *InitResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Warn("%s", msg)
	r.Warnings = append(r.Warnings, msg)
}

// Initialise creates the optional AI services the settings call for.
// Failures never abort: the affected path is disabled and a warning recorded.
// Vectors live under dataDir/vectors unless the settings name a path.
func Initialise(ctx context.Context, settings *domain.AppSettings, dataDir string, prompts driven.PromptStore) *InitResult {
	result := &InitResult{PromptStore: prompts}
	mode := settings.Search.Mode

	if mode.RequiresEmbedding() {
		embedding, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
		switch {
		case err != nil:
			result.warn("vector search disabled: %v", err)
		case embedding == nil:
			result.warn("vector search disabled: no embedding provider configured")
		default:
			index, err := CreateVectorIndex(&settings.VectorIndex, dataDir, embedding.Dimensions())
			if err != nil {
				embedding.Close()
				result.warn("vector search disabled: %v", err)
			} else {
				result.EmbeddingService = embedding
				result.VectorIndex = index
			}
		}
		if result.VectorIndex == nil {
			result.FellBack = true
		}
	}

	if mode.RequiresLLM() || settings.LLM.IsConfigured() {
		llm, err := CreateAndValidateLLMService(ctx, &settings.LLM)
		switch {
		case err != nil:
			result.warn("query expansion and reranking disabled: %v", err)
		case llm == nil:
			result.warn("query expansion and reranking disabled: no LLM provider configured")
		default:
			result.LLMService = NewRateLimitedLLM(llm, settings.LLM.RequestsPerSecond, 1)
			reranker := llmrerank.New(result.LLMService, settings.Search.HydeModel)
			if prompts != nil {
				reranker.SetPromptStore(prompts)
			}
			result.Reranker = reranker
		}
		if mode.RequiresLLM() && result.LLMService == nil {
			result.FellBack = true
		}
	}

	return result
}

// CreateVectorIndex opens the badger vector index.
func CreateVectorIndex(settings *domain.VectorIndexSettings, dataDir string, dimensions int) (driven.VectorIndex, error) {
	path := settings.Path
	if path == "" {
		path = filepath.Join(dataDir, "vectors")
	}
	if dimensions == 0 {
		dimensions = settings.Dimensions
	}
	index, err := badger.New(badger.Options{Dir: path, Dimensions: dimensions})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return index, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-kb settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-kb settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-kb settings' to fix",
			domain.ErrLLMUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'sercha-kb settings' to fix",
			domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateAndValidateEmbeddingService(ctx, settings)
	if svc != nil {
		svc.Close()
	}
	return err
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := CreateAndValidateLLMService(ctx, settings)
	if svc != nil {
		svc.Close()
	}
	return err
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	dimensions := domain.EmbeddingDimensions()[settings.Model]

	switch settings.Provider {
	case domain.AIProviderOllama:
		return localembed.NewEmbeddingService(localembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return localllm.NewLLMService(localllm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}
