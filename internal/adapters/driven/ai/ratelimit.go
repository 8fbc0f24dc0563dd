package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
)

// Ensure RateLimitedLLM implements the interface.
var _ driven.LLMService = (*RateLimitedLLM)(nil)

// RateLimitedLLM throttles Chat calls to a provider.
type RateLimitedLLM struct {
	driven.LLMService
	limiter *rate.Limiter
}

// NewRateLimitedLLM wraps llm with a token bucket of rps requests per second.
// A non-positive rps returns llm unchanged.
func NewRateLimitedLLM(llm driven.LLMService, rps float64, burst int) driven.LLMService {
	if rps <= 0 || llm == nil {
		return llm
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedLLM{
		LLMService: llm,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Chat waits for a token, then forwards to the wrapped service.
func (r *RateLimitedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.LLMService.Chat(ctx, messages, opts)
}
