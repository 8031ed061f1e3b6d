// Package logger provides a context aware structured logger built on log/slog.
// Records are written as JSON and mirrored to the OpenTelemetry log bridge.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// TraceIDFn represents a function that can return the trace id from
// the specified context.
type TraceIDFn func(ctx context.Context) string

// Logger represents a logger for logging information.
type Logger struct {
	handler   slog.Handler
	traceIDFn TraceIDFn
}

// New constructs a new log for application use.
func New(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn) *Logger {
	return newLogger(w, minLevel, serviceName, traceIDFn, Events{})
}

// NewWithEvents constructs a new log for application use with events.
func NewWithEvents(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn, events Events) *Logger {
	return newLogger(w, minLevel, serviceName, traceIDFn, events)
}

// NewStdLogger returns a standard library Logger that wraps the slog Logger.
// It is handed to http.Server so its internal errors land in the same stream.
func NewStdLogger(logger *Logger, level Level) *log.Logger {
	return slog.NewLogLogger(logger.handler, slog.Level(level))
}

// Noop returns a no-op logger.
func Noop() *Logger { return &Logger{handler: slog.NewJSONHandler(io.Discard, nil)} }

// Debug logs at LevelDebug with the given context.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelDebug, 3, msg, args...)
}

// Info logs at LevelInfo with the given context.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelInfo, 3, msg, args...)
}

// Warn logs at LevelWarn with the given context.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelWarn, 3, msg, args...)
}

// Error logs at LevelError with the given context.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelError, 3, msg, args...)
}

// With returns a new Logger with the given key/value pairs attached to every
// record. Pairs whose key is not a string are skipped.
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{
		handler:   l.handler.WithAttrs(toAttrs(keyvals)),
		traceIDFn: l.traceIDFn,
	}
}

func (l *Logger) write(ctx context.Context, level Level, caller int, msg string, args ...any) {
	slogLevel := slog.Level(level)
	if !l.handler.Enabled(ctx, slogLevel) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(caller, pcs[:])

	r := slog.NewRecord(time.Now(), slogLevel, msg, pcs[0])
	if l.traceIDFn != nil {
		args = append(args, "trace_id", l.traceIDFn(ctx))
	}
	r.Add(args...)

	_ = l.handler.Handle(ctx, r)
}

func toAttrs(keyvals []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, keyvals[i+1]))
	}
	return attrs
}

func newLogger(w io.Writer, minLevel Level, serviceName string, traceIDFn TraceIDFn, events Events) *Logger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.Level(minLevel),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.SourceKey {
				return a
			}
			if source, ok := a.Value.Any().(*slog.Source); ok {
				v := fmt.Sprintf("%s:%d", filepath.Base(source.File), source.Line)
				return slog.Attr{Key: "file", Value: slog.StringValue(v)}
			}
			return a
		},
	})

	// The bridge forwards to the global LoggerProvider; without an exporter
	// configured that provider drops everything.
	otelHandler := otelslog.NewHandler(serviceName, otelslog.WithSource(true))

	var handler slog.Handler = NewMultiHandler(jsonHandler, otelHandler)
	if !events.empty() {
		handler = newEventHandler(handler, events)
	}

	handler = handler.WithAttrs([]slog.Attr{slog.String("service", serviceName)})

	return &Logger{handler: handler, traceIDFn: traceIDFn}
}
