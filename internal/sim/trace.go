package sim

import (
	"context"
	"io"
	"log/slog"
)

// traceHandler wraps an slog.Handler and tags every record with a fixed
// "component" attribute, the same shape as rcornwell-S370/util/logger's
// handler wrapper around slog.Handler.
type traceHandler struct {
	next slog.Handler
}

func newTraceHandler(next slog.Handler) *traceHandler {
	return &traceHandler{next: next}
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(slog.String("component", "rvm-sim"))
	return h.next.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{next: h.next.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{next: h.next.WithGroup(name)}
}

// NewLogger builds a tracer writing structured records to w at the given
// level. Debug shows every executed instruction; Warn and above surface the faults
// (input exhaustion, a write to r0) that end a run early.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	base := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(newTraceHandler(base))
}
