// Package logger provides verbose logging for sercha-kb.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr so the retrieval pipeline can be followed step by step.
//
// Components log through a Scope (see For) so that interleaved lines from
// concurrent backends stay attributable.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	write("DEBUG", "", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	write("INFO", "", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	write("WARN", "", format, args...)
}

// Error prints an error message. Errors are printed even when verbose
// mode is disabled.
func Error(format string, args ...any) {
	writeAlways("ERROR", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Scope is a logger bound to a component name.
type Scope struct {
	component string
}

// For returns a Scope that prefixes every line with the component name.
func For(component string) Scope {
	return Scope{component: component}
}

// Debug prints a scoped debug message if verbose mode is enabled.
func (s Scope) Debug(format string, args ...any) {
	write("DEBUG", s.component, format, args...)
}

// Info prints a scoped informational message if verbose mode is enabled.
func (s Scope) Info(format string, args ...any) {
	write("INFO", s.component, format, args...)
}

// Warn prints a scoped warning if verbose mode is enabled.
func (s Scope) Warn(format string, args ...any) {
	write("WARN", s.component, format, args...)
}

// Error prints a scoped error message regardless of verbose mode.
func (s Scope) Error(format string, args ...any) {
	writeAlways("ERROR", s.component, format, args...)
}

func write(level, component, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if verbose {
		fmt.Fprintf(output, prefix(level, component)+format+"\n", args...)
	}
}

func writeAlways(level, component, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(output, prefix(level, component)+format+"\n", args...)
}

func prefix(level, component string) string {
	if component == "" {
		return "[" + level + "] "
	}
	return "[" + level + "] " + component + ": "
}
