package driven

import (
	"context"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

// AIConfigValidator checks provider settings before they are relied on.
// Both methods return nil for an unconfigured provider; the search mode
// decides whether that is acceptable.
type AIConfigValidator interface {
	// ValidateEmbedding builds the embedding client and pings it.
	ValidateEmbedding(ctx context.Context, config *domain.EmbeddingSettings) error

	// ValidateLLM builds the chat client and pings it.
	ValidateLLM(ctx context.Context, config *domain.LLMSettings) error
}
