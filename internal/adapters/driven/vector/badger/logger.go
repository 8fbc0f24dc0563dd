package badger

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/custodia-labs/sercha-kb/internal/logger"
)

// badgerLogger routes badger's internal logging to the verbose logger.
// Badger's info output is demoted to debug.
type badgerLogger struct {
	scope logger.Scope
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.scope.Error("%s", trim(format, args))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.scope.Warn("%s", trim(format, args))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.scope.Debug("%s", trim(format, args))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.scope.Debug("%s", trim(format, args))
}

// trim drops the trailing newline badger puts on most messages.
func trim(format string, args []any) string {
	return strings.TrimRight(fmt.Sprintf(format, args...), "\n")
}
