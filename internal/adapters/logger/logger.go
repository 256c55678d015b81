// Package logger implements the build log adapter using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/donno/cake/internal/core/ports"
)

// Logger implements ports.Logger on a slog text handler. Error and warning
// counts feed the end-of-build summary; debug output is gated per component
// so "-d reason" and "-d script" can be enabled independently.
type Logger struct {
	mu       sync.Mutex
	logger   *slog.Logger
	debug    map[string]bool
	errors   int
	warnings int
}

// New creates a Logger writing human-readable output to stderr.
func New() *Logger {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates a Logger writing to w. Tests use this to capture
// output.
func NewWithWriter(w io.Writer) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return &Logger{
		logger: slog.New(handler),
		debug:  make(map[string]bool),
	}
}

// OutputInfo implements ports.Logger.
func (l *Logger) OutputInfo(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Info(msg)
}

// OutputWarning implements ports.Logger.
func (l *Logger) OutputWarning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings++
	l.logger.Warn(msg)
}

// OutputError implements ports.Logger.
func (l *Logger) OutputError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors++
	l.logger.Error(msg)
}

// OutputDebug implements ports.Logger.
func (l *Logger) OutputDebug(component, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.debug[component] {
		return
	}
	l.logger.Debug(msg, "component", component)
}

// EnableDebug implements ports.Logger.
func (l *Logger) EnableDebug(component string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug[component] = true
}

// DebugEnabled implements ports.Logger.
func (l *Logger) DebugEnabled(component string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug[component]
}

// ErrorCount implements ports.Logger.
func (l *Logger) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errors
}

// WarningCount implements ports.Logger.
func (l *Logger) WarningCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.warnings
}

var _ ports.Logger = (*Logger)(nil)
