package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogLogger_LevelsAndAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ctx := context.Background()

	log.Debug(ctx, "upgrade", "remote", "10.0.0.7")
	log.Info(ctx, "joined", "rooms", 2)
	log.Warn(ctx, "slow consumer dropped", "user_id", "u1")
	log.Error(ctx, "persist message", "session_id", "s1")

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG", "remote=10.0.0.7",
		"level=INFO", "rooms=2",
		"level=WARN", "user_id=u1",
		"level=ERROR", "session_id=s1",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSlogLogger_WithKeepsModule(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	log.With("module", "realtime").Info(context.TODO(), "hub started", "rooms", 0)

	out := buf.String()
	assert.Contains(t, out, "module=realtime")
	assert.Contains(t, out, `msg="hub started"`)
	assert.Contains(t, out, "rooms=0")
}

func TestNewJSONSlogLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONSlogLogger(&buf, "warn")
	ctx := context.Background()

	log.Info(ctx, "skipped")
	log.Warn(ctx, "kept")

	out := buf.String()
	if strings.Contains(out, "skipped") {
		t.Fatalf("info must be filtered at warn level:\n%s", out)
	}
	if !strings.Contains(out, `"msg":"kept"`) {
		t.Fatalf("expected json warn line, got:\n%s", out)
	}
}

func TestParseSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseSlogLevel(in); got != want {
			t.Fatalf("parseSlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
