package driven

// ConfigStore is a flat key/value view of the config file. Keys are dotted
// paths ("search.rrf_k", "llm.provider"); the TOML adapter maps them onto
// tables. Typed getters return the zero value for a missing key or a value
// of the wrong type, so callers apply their own defaults.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool

	// GetFloat widens integer values.
	GetFloat(key string) float64

	GetStringSlice(key string) []string

	// Set updates a value and writes the file.
	Set(key string, value any) error

	Save() error

	// Load re-reads the file, replacing every in-memory value.
	Load() error

	Path() string
}
