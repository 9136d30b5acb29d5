// Package logging provides the slog setup shared by the server and the
// library examples: a compact console handler for development and a JSON
// handler for production.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// New builds a logger writing to w. With json set, records are emitted as
// one JSON object per line; otherwise the compact console format is used.
func New(w io.Writer, level slog.Level, json bool) *slog.Logger {
	if json {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(NewCompactHandler(w, level))
}

// CompactHandler renders records as "[LEVEL] HH:MM:SS message key=value ...".
type CompactHandler struct {
	level slog.Level
	mu    sync.Mutex
	out   io.Writer
	attrs []slog.Attr
	group string
}

// NewCompactHandler creates a compact console handler with a minimum level.
func NewCompactHandler(w io.Writer, level slog.Level) *CompactHandler {
	return &CompactHandler{level: level, out: w}
}

func (h *CompactHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *CompactHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 256)
	buf = fmt.Appendf(buf, "[%-5s] ", r.Level.String())
	if !r.Time.IsZero() {
		buf = append(buf, r.Time.Format("15:04:05")...)
		buf = append(buf, ' ')
	}
	buf = append(buf, r.Message...)

	for _, a := range h.attrs {
		buf = h.appendAttr(buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func (h *CompactHandler) appendAttr(buf []byte, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return buf
	}
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	return fmt.Appendf(buf, " %s=%v", key, a.Value.Resolve().Any())
}

func (h *CompactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return c
}

func (h *CompactHandler) WithGroup(name string) slog.Handler {
	c := h.clone()
	if name != "" {
		if c.group != "" {
			c.group += "." + name
		} else {
			c.group = name
		}
	}
	return c
}

func (h *CompactHandler) clone() *CompactHandler {
	return &CompactHandler{
		level: h.level,
		out:   h.out,
		attrs: h.attrs,
		group: h.group,
	}
}
