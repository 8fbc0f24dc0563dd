// Package file provides filesystem-backed driven adapters: the TOML
// ConfigStore, the editable PromptStore and a Watcher that reloads both
// when their files change.
package file
