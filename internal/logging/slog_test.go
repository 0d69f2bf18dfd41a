package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newBufferLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg message", "a", 1)
	log.Info(ctx, "inf message", "b", 2)
	log.Warn(ctx, "wrn message", "c", 3)
	log.Error(ctx, "err message", "d", 4)

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "level=INFO", "level=WARN", "level=ERROR",
		"a=1", "b=2", "c=3", "d=4",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestSlogLogger_WithCarriesAttributes(t *testing.T) {
	log, buf := newBufferLogger(t)

	child := log.With("request_id", "r-42")
	child.Info(context.Background(), "first")
	child.Warn(context.Background(), "second")

	out := buf.String()
	if strings.Count(out, "request_id=r-42") != 2 {
		t.Fatalf("expected request_id on every record:\n%s", out)
	}
}
