// Package llm provides a Reranker that asks a language model to order
// candidates by relevance.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// Ensure Reranker implements the interfaces.
var (
	_ driven.Reranker         = (*Reranker)(nil)
	_ driven.PromptStoreAware = (*Reranker)(nil)
)

const (
	// snippetLength caps each candidate's text in the prompt.
	snippetLength = 300

	rerankTemperature = 0.0
)

// DefaultPrompt is the fallback instruction when no PromptStore is configured.
const DefaultPrompt = `You rank search results. Given a query and numbered candidates, order the ` +
	`candidates from most to least relevant to the query. Reply with a JSON array of candidate ` +
	`numbers only, for example [3, 1, 2]. Leave out candidates that are irrelevant.`

// ErrUnparseable is returned when the model reply contains no candidate reference.
var ErrUnparseable = errors.New("rerank reply contained no candidates")

// Reranker orders candidates with a single chat completion.
type Reranker struct {
	llm         driven.LLMService
	model       string
	promptStore driven.PromptStore
	log         logger.Scope
}

// New creates a reranker. An empty model uses the service default.
func New(llm driven.LLMService, model string) *Reranker {
	return &Reranker{llm: llm, model: model, log: logger.For("rerank")}
}

// SetPromptStore sets the prompt store for loading the rerank instruction.
func (r *Reranker) SetPromptStore(store driven.PromptStore) {
	r.promptStore = store
}

// Rerank returns candidate item IDs ordered by the model.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []driven.RerankCandidate) ([]string, error) {
	if r.llm == nil {
		return nil, domain.ErrRerankUnavailable
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	reply, err := r.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: r.loadPrompt()},
		{Role: driven.RoleUser, Content: buildPrompt(query, candidates)},
	}, driven.ChatOptions{
		Model:       r.model,
		MaxTokens:   8*len(candidates) + 32,
		Temperature: rerankTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	order := parseOrder(reply, candidates)
	if len(order) == 0 {
		return nil, ErrUnparseable
	}
	r.log.Debug("candidates=%d ranked=%d", len(candidates), len(order))
	return order, nil
}

func (r *Reranker) loadPrompt() string {
	if r.promptStore == nil {
		return DefaultPrompt
	}
	prompt, err := r.promptStore.Load(driven.PromptRerank)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return DefaultPrompt
	}
	return prompt
}

func buildPrompt(query string, candidates []driven.RerankCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nCandidates:\n", query)
	for i, c := range candidates {
		snippet := strings.Join(strings.Fields(c.Snippet), " ")
		if runes := []rune(snippet); len(runes) > snippetLength {
			snippet = string(runes[:snippetLength]) + "..."
		}
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, c.Title, snippet)
	}
	return b.String()
}

// parseOrder maps a reply onto candidate IDs. It accepts a JSON array of
// 1-based numbers or item IDs and falls back to scanning comma or line
// separated tokens. A token in candidate range is read as a number before
// it is tried as an ID. Unknown references and repeats are dropped.
func parseOrder(reply string, candidates []driven.RerankCandidate) []string {
	byID := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		byID[c.ItemID] = true
	}

	resolve := func(token string) (string, bool) {
		token = strings.Trim(strings.TrimSpace(token), `"'[]().#`)
		if n, err := strconv.Atoi(token); err == nil && n >= 1 && n <= len(candidates) {
			return candidates[n-1].ItemID, true
		}
		if byID[token] {
			return token, true
		}
		return "", false
	}

	var tokens []string
	if start, end := strings.Index(reply, "["), strings.LastIndex(reply, "]"); start >= 0 && end > start {
		var items []any
		if err := json.Unmarshal([]byte(reply[start:end+1]), &items); err == nil {
			for _, item := range items {
				switch v := item.(type) {
				case float64:
					tokens = append(tokens, strconv.Itoa(int(v)))
				case string:
					tokens = append(tokens, v)
				}
			}
		}
	}
	if tokens == nil {
		tokens = strings.FieldsFunc(reply, func(r rune) bool {
			return r == ',' || r == '\n' || r == ' ' || r == '>'
		})
	}

	seen := make(map[string]bool)
	var order []string
	for _, token := range tokens {
		id, ok := resolve(token)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		order = append(order, id)
	}
	return order
}
