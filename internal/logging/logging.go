// Package logging provides category-based structured logging for the
// compiler, one category per pipeline phase. Adapted from the teacher's
// internal/logging category-file scheme, rebuilt on zap's structured
// logger instead of the teacher's bespoke per-category file handles.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

// Category names a logical subsystem within the compiler.
type Category string

const (
	Parse    Category = "parse"
	Import   Category = "import"
	Link     Category = "link"
	Validate Category = "validate"
	Analyze  Category = "analyze"
	Emit     Category = "emit"
	Diff     Category = "diff"
	LSP      Category = "lsp"
	Compiler Category = "compiler"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	loggers = map[Category]*zap.SugaredLogger{}
)

func root() *zap.Logger {
	mu.RLock()
	if base != nil {
		defer mu.RUnlock()
		return base
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		base = l
	}
	return base
}

// Get returns the SugaredLogger for category, creating it on first use.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		defer mu.RUnlock()
		return l
	}
	mu.RUnlock()

	r := root()
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := r.Sugar().With("category", string(category))
	loggers[category] = l
	return l
}

// SetBase overrides the root zap.Logger, e.g. to redirect to a test
// observer or a development-mode pretty printer. Intended for tests and
// host front-ends, not for use within the core phases themselves.
func SetBase(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	loggers = map[Category]*zap.SugaredLogger{}
}

// Sync flushes all buffered log entries. Call once at process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}
