package logger

import (
	"context"
	"log/slog"
	"sync"
)

// LoggerContext carries attributes that are discovered while an operation
// runs (a handle id, the step that failed) on top of a base Logger.
type LoggerContext struct {
	base *Logger

	mu    sync.RWMutex
	attrs []slog.Attr
}

// NewLoggerContext creates a new logger context wrapper.
func NewLoggerContext(logger *Logger) *LoggerContext {
	return &LoggerContext{base: logger}
}

// Add appends key/value pairs to the dynamic context.
func (lc *LoggerContext) Add(keyvals ...any) {
	attrs := toAttrs(keyvals)

	lc.mu.Lock()
	lc.attrs = append(lc.attrs, attrs...)
	lc.mu.Unlock()
}

// Clear removes all dynamic context.
func (lc *LoggerContext) Clear() {
	lc.mu.Lock()
	lc.attrs = nil
	lc.mu.Unlock()
}

func (lc *LoggerContext) args(args []any) []any {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	out := make([]any, 0, len(args)+len(lc.attrs)*2)
	for _, attr := range lc.attrs {
		out = append(out, attr.Key, attr.Value.Any())
	}
	return append(out, args...)
}

// Debug logs at LevelDebug with the static and dynamic context.
func (lc *LoggerContext) Debug(ctx context.Context, msg string, args ...any) {
	lc.base.write(ctx, LevelDebug, 3, msg, lc.args(args)...)
}

// Info logs at LevelInfo with the static and dynamic context.
func (lc *LoggerContext) Info(ctx context.Context, msg string, args ...any) {
	lc.base.write(ctx, LevelInfo, 3, msg, lc.args(args)...)
}

// Warn logs at LevelWarn with the static and dynamic context.
func (lc *LoggerContext) Warn(ctx context.Context, msg string, args ...any) {
	lc.base.write(ctx, LevelWarn, 3, msg, lc.args(args)...)
}

// Error logs at LevelError with the static and dynamic context.
func (lc *LoggerContext) Error(ctx context.Context, msg string, args ...any) {
	lc.base.write(ctx, LevelError, 3, msg, lc.args(args)...)
}
