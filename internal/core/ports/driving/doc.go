// Package driving defines the operations the CLI and MCP adapters call:
// search, permission-checked item reads, access inspection and settings.
//
// internal/core/services implements every interface here.
package driving
