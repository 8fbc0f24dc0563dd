// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple port interfaces
// through a single database connection:
//
//   - LexicalIndex: FTS5 full-text search over chunk content, ranked by bm25
//   - ChunkStore: Item and chunk persistence
//   - MembershipStore: People, teams, projects and their relations
//   - UserStore: Accounts and scopes
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// The FTS5 table uses external content and is kept in sync with chunks by triggers.
//
// # Access Filtering
//
// The lexical index translates an AccessFilter into a SQL predicate: the OR of
// public sensitivity, created-by-me, person-attached and one clause per project
// listing its allowed sensitivities.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-kb/data/kb.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
