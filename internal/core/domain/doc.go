// Package domain defines the core business entities for sercha-kb.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Item: An ingested unit of content (message, document, observation)
//   - Chunk: A searchable unit derived from exactly one Item
//   - User, Person, Team, Project: The identity and membership model
//   - AccessFilter: The per-request authorisation context
//   - SearchRequest / SearchResult: The caller-facing search contract
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
