package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-kb/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// HyDE tuning.
const (
	DefaultHydeCacheSize = 100
	hydeMinWords         = 4
	hydeTemperature      = 0.3
	hydeMaxTokens        = 200
)

// defaultHydePrompt is the fallback system instruction when no PromptStore is configured.
const defaultHydePrompt = `Write a short, direct passage that answers the user's question as if it were ` +
	`an excerpt from a real document. Output only the passage itself. Do not add any ` +
	`meta-commentary such as "Here is a passage about" or "This passage explains".`

// HydeCache holds expansions keyed by normalised query. Entries are evicted
// oldest-inserted first: once an insert pushes the size past the maximum,
// the oldest half is dropped. Reads do not refresh an entry's position.
type HydeCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]string
	order   []string
}

// NewHydeCache creates a cache holding at most maxEntries before eviction.
func NewHydeCache(maxEntries int) *HydeCache {
	if maxEntries <= 0 {
		maxEntries = DefaultHydeCacheSize
	}
	return &HydeCache{
		max:     maxEntries,
		entries: make(map[string]string, maxEntries+1),
	}
}

// Get returns the cached expansion for query.
func (c *HydeCache) Get(query string) (string, bool) {
	key := cacheKey(query)
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores an expansion. Updating an existing key keeps its position.
func (c *HydeCache) Put(query, expansion string) {
	key := cacheKey(query)
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = expansion
		return
	}
	c.entries[key] = expansion
	c.order = append(c.order, key)

	if len(c.order) > c.max {
		evict := len(c.order) / 2
		for _, k := range c.order[:evict] {
			delete(c.entries, k)
		}
		c.order = append([]string(nil), c.order[evict:]...)
	}
}

// Len returns the number of cached entries.
func (c *HydeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// QueryExpander produces hypothetical answer passages for queries (HyDE).
type QueryExpander struct {
	llm         driven.LLMService
	cache       *HydeCache
	promptStore driven.PromptStore
	log         logger.Scope
}

// Ensure QueryExpander accepts custom prompts.
var _ driven.PromptStoreAware = (*QueryExpander)(nil)

// NewQueryExpander creates an expander. llm may be nil, in which case no
// query is ever expanded.
func NewQueryExpander(llm driven.LLMService, cache *HydeCache) *QueryExpander {
	if cache == nil {
		cache = NewHydeCache(DefaultHydeCacheSize)
	}
	return &QueryExpander{
		llm:   llm,
		cache: cache,
		log:   logger.For("hyde"),
	}
}

// SetPromptStore sets the prompt store for loading the HyDE instruction.
func (x *QueryExpander) SetPromptStore(store driven.PromptStore) {
	x.promptStore = store
}

// Enabled reports whether an LLM is wired.
func (x *QueryExpander) Enabled() bool {
	return x.llm != nil
}

// Expand returns a hypothetical document for query. Queries shorter than
// four words are never expanded. Failures and empty replies report false
// and are not cached.
func (x *QueryExpander) Expand(ctx context.Context, query, model string, timeout time.Duration) (string, bool) {
	if wordCount(query) < hydeMinWords {
		return "", false
	}
	if cached, ok := x.cache.Get(query); ok {
		x.log.Debug("cache hit for %q", query)
		return cached, true
	}
	if x.llm == nil {
		return "", false
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reply, err := x.llm.Chat(cctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: x.loadPrompt()},
		{Role: driven.RoleUser, Content: strings.TrimSpace(query)},
	}, driven.ChatOptions{
		Model:       model,
		MaxTokens:   hydeMaxTokens,
		Temperature: hydeTemperature,
	})
	if err != nil {
		x.log.Warn("expansion failed for %q: %v", query, err)
		return "", false
	}

	expansion := strings.TrimSpace(reply)
	if expansion == "" {
		x.log.Debug("empty expansion for %q", query)
		return "", false
	}

	x.cache.Put(query, expansion)
	x.log.Debug("expanded %q (%d chars)", query, len(expansion))
	return expansion, true
}

// BuildHydeChunks returns the query fragments to search with: the original
// query first, followed by its expansion when one is available.
func (x *QueryExpander) BuildHydeChunks(ctx context.Context, query, model string, timeout time.Duration) []string {
	if wordCount(query) < hydeMinWords {
		return []string{query}
	}
	if expansion, ok := x.Expand(ctx, query, model, timeout); ok {
		return []string{query, expansion}
	}
	return []string{query}
}

func (x *QueryExpander) loadPrompt() string {
	if x.promptStore == nil {
		return defaultHydePrompt
	}
	prompt, err := x.promptStore.Load(driven.PromptHyDE)
	if err != nil || strings.TrimSpace(prompt) == "" {
		return defaultHydePrompt
	}
	return prompt
}
