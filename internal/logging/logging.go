// Package logging builds the slog loggers used by the daemon and the CLI.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// New returns a logger writing to w at the given level ("debug", "info",
// "warn", "error") in "text" or "json" format. Unknown values fall back to
// info and text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	switch strings.ToLower(format) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Tee returns a logger that writes every record to base and also hands
// records at or above min to sink. The daemon uses it to mirror important
// log lines onto the event stream.
func Tee(base *slog.Logger, min slog.Level, sink func(slog.Record)) *slog.Logger {
	return slog.New(&teeHandler{next: base.Handler(), min: min, sink: sink})
}

type teeHandler struct {
	next slog.Handler
	min  slog.Level
	sink func(slog.Record)
	// attrs carried by With, applied to sink copies of the record.
	attrs []slog.Attr
}

func (h *teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.min || h.next.Enabled(ctx, l)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.min {
		c := r.Clone()
		c.AddAttrs(h.attrs...)
		h.sink(c)
	}
	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{
		next:  h.next.WithAttrs(attrs),
		min:   h.min,
		sink:  h.sink,
		attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...),
	}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{next: h.next.WithGroup(name), min: h.min, sink: h.sink, attrs: h.attrs}
}
