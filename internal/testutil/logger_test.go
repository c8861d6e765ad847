package testutil

import (
	"fmt"
	"testing"
)

// logRecorder captures Log calls; the embedded TB covers the rest of the
// interface.
type logRecorder struct {
	testing.TB
	lines []string
}

func (r *logRecorder) Helper() {}

func (r *logRecorder) Log(args ...any) {
	r.lines = append(r.lines, fmt.Sprint(args...))
}

func TestNewTestLogger(t *testing.T) {
	rec := &logRecorder{TB: t}
	logger := NewTestLogger(rec)

	logger.Info("run complete", "documents", 3)
	logger.WithGroup("run").With("id", "abc").Warn("slow", "elapsed", "2s")

	if len(rec.lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(rec.lines), rec.lines)
	}
	if want := "INFO run complete documents=3"; rec.lines[0] != want {
		t.Errorf("line 0 = %q, want %q", rec.lines[0], want)
	}
	if want := "WARN slow run.id=abc run.elapsed=2s"; rec.lines[1] != want {
		t.Errorf("line 1 = %q, want %q", rec.lines[1], want)
	}
}
