// Package testutil provides shared helpers for tests.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"testing"
)

// NewTestLogger returns an slog logger whose records land in t.Log, so engine
// output shows up only on failure or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	return slog.New(&logBridge{t: t})
}

// logBridge is an slog.Handler that renders each record as a single t.Log
// line: LEVEL message key=value ...
type logBridge struct {
	t      testing.TB
	prefix string
	attrs  []slog.Attr
}

func (b *logBridge) Enabled(context.Context, slog.Level) bool { return true }

func (b *logBridge) Handle(_ context.Context, r slog.Record) error {
	b.t.Helper()
	var line strings.Builder
	line.WriteString(r.Level.String())
	line.WriteByte(' ')
	line.WriteString(r.Message)
	for _, a := range b.attrs {
		writeAttr(&line, a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&line, b.prefix+a.Key, a.Value)
		return true
	})
	b.t.Log(line.String())
	return nil
}

func writeAttr(line *strings.Builder, key string, v slog.Value) {
	line.WriteByte(' ')
	line.WriteString(key)
	line.WriteByte('=')
	line.WriteString(v.String())
}

func (b *logBridge) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *b
	next.attrs = append([]slog.Attr(nil), b.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: b.prefix + a.Key, Value: a.Value})
	}
	return &next
}

func (b *logBridge) WithGroup(name string) slog.Handler {
	next := *b
	next.prefix = b.prefix + name + "."
	return &next
}
