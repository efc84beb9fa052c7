// Package diag provides the structured-logging facade the VM, JIT, and
// async runtime log through. Grounded on this codebase's trace package
// (global-tracer Init/IsEnabled pattern), generalized onto log/slog per
// the oriys-nova logging idiom (SPEC_FULL.md ambient stack: log/slog is
// stdlib by corpus-wide absence of a third-party logging library, not by
// default - no example in the retrieved pack imports one).
package diag

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	logger  *slog.Logger
	enabled bool
)

// Init installs the process-wide logger. format is "json" or "text"
// (text is the default for interactive/dev use).
func Init(w io.Writer, format string, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger = slog.New(handler)
	enabled = true
}

// Logger returns the process-wide logger, lazily defaulting to a
// text handler on stderr at Info level if Init was never called.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return logger
}

// IsEnabled reports whether Init has explicitly configured a logger
// (mirrors this codebase's trace.IsEnabled gate used to skip formatting
// work on hot paths when nobody is listening).
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// With returns a child logger scoped to a component name, the pattern
// vm construction code uses: diag.With("vm").
func With(component string) *slog.Logger {
	return Logger().With("component", component)
}
