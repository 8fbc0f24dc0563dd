package driven

// Prompt names. Both are system instructions without format placeholders.
const (
	PromptHyDE   = "hyde"   // hypothetical answer generation for query expansion
	PromptRerank = "rerank" // relevance ordering of fused candidates
)

// PromptStore resolves a prompt name to its system instruction text.
// Callers fall back to their built-in instruction when Load fails or the
// store is nil.
type PromptStore interface {
	Load(name string) (string, error)

	// Reload drops cached prompts so edits on disk are picked up.
	Reload()
}

// PromptStoreAware is implemented by LLM-backed components whose
// instruction can be overridden from a PromptStore.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}
