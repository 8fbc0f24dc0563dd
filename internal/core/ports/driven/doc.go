// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for search to function:
//
//   - LexicalIndex: Full-text search (SQLite FTS5). Lexical search is always on.
//   - ChunkStore: Item and chunk metadata used to rank and filter candidates
//   - MembershipStore: Teams, memberships and project assignments for role derivation
//   - UserStore: Resolves the requesting identity
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - search degrades gracefully:
//
//   - VectorIndex: Vector storage/search (badger). Only enabled when EmbeddingService is configured.
//   - EmbeddingService: Generates vector embeddings. Without it, VectorIndex is also disabled.
//   - LLMService: Language model operations. Without it, HyDE expansion is disabled.
//   - Reranker: Final re-ordering stage. Without it, the fused order is returned.
//   - PromptStore: User-editable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
