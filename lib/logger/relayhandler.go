package logger

import (
	"context"
	"fmt"
	"log/slog"
)

// Notifier receives log lines for out-of-band delivery, e.g. the bot
// posting them to a guild log channel.
type Notifier interface {
	RelayLog(level slog.Level, msg string)
}

// RelayHandler is a slog.Handler that mirrors records at or above minLevel
// to a Notifier after the wrapped handler has processed them. Delivery is
// best-effort; the Notifier must never block for long.
type RelayHandler struct {
	handler  slog.Handler
	notifier Notifier
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

func NewRelayHandler(handler slog.Handler, notifier Notifier, minLevel slog.Level) *RelayHandler {
	return &RelayHandler{
		handler:  handler,
		notifier: notifier,
		minLevel: minLevel,
	}
}

func (h *RelayHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *RelayHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := h.handler.Handle(ctx, record); err != nil {
		return err
	}
	if record.Level < h.minLevel || h.notifier == nil {
		return nil
	}

	msg := fmt.Sprintf("%s %s", record.Level.String(), record.Message)
	if h.group != "" {
		msg = fmt.Sprintf("%s %s.%s", record.Level.String(), h.group, record.Message)
	}
	for _, attr := range h.attrs {
		msg += fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg += fmt.Sprintf("\n%s: %v", attr.Key, attr.Value)
		return true
	})

	h.notifier.RelayLog(record.Level, msg)
	return nil
}

func (h *RelayHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(combined, h.attrs)
	copy(combined[len(h.attrs):], attrs)

	return &RelayHandler{
		handler:  h.handler.WithAttrs(attrs),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    combined,
		group:    h.group,
	}
}

func (h *RelayHandler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}

	return &RelayHandler{
		handler:  h.handler.WithGroup(name),
		notifier: h.notifier,
		minLevel: h.minLevel,
		attrs:    h.attrs,
		group:    group,
	}
}
