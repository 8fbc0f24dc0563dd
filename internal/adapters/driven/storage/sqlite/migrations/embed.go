// Package migrations holds the numbered SQLite schema scripts.
//
// Files are named NNN_name.up.sql and NNN_name.down.sql. The store applies
// up scripts above the highest version recorded in schema_migrations, each
// in its own transaction. Down scripts are kept for manual rollback.
package migrations

import "embed"

//go:embed *.up.sql *.down.sql
var FS embed.FS
