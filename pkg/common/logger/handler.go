package logger

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans a record out to every wrapped handler.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler returns a handler writing to all of hs.
func NewMultiHandler(hs ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: hs}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle forwards the record to each enabled handler. Every handler gets the
// record even if an earlier one fails; the failures are joined.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}

// eventHandler runs the configured event function for a record's level
// after the wrapped handler has written it.
type eventHandler struct {
	handler slog.Handler
	events  Events
}

func newEventHandler(handler slog.Handler, events Events) *eventHandler {
	return &eventHandler{handler: handler, events: events}
}

func (h *eventHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *eventHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &eventHandler{handler: h.handler.WithAttrs(attrs), events: h.events}
}

func (h *eventHandler) WithGroup(name string) slog.Handler {
	return &eventHandler{handler: h.handler.WithGroup(name), events: h.events}
}

func (h *eventHandler) Handle(ctx context.Context, r slog.Record) error {
	var fn EventFn
	switch r.Level {
	case slog.LevelDebug:
		fn = h.events.Debug
	case slog.LevelInfo:
		fn = h.events.Info
	case slog.LevelWarn:
		fn = h.events.Warn
	case slog.LevelError:
		fn = h.events.Error
	}

	err := h.handler.Handle(ctx, r)
	if fn != nil {
		fn(ctx, toRecord(r))
	}
	return err
}
