package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	tests := []struct {
		level, msg, attr string
	}{
		{"DEBUG", "dbg", "a=1"},
		{"INFO", "inf", "b=2"},
		{"WARN", "wrn", "c=3"},
		{"ERROR", "err", "d=4"},
	}
	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			assert.Contains(t, out, "level="+tc.level)
			assert.Contains(t, out, "msg="+tc.msg)
			assert.Contains(t, out, tc.attr)
		})
	}
}

func TestSlogLogger_With(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("module", "sessions").Info(context.Background(), "opened", "session_id", "s1")

	out := buf.String()
	for _, s := range []string{"level=INFO", "msg=opened", "module=sessions", "session_id=s1"} {
		assert.Contains(t, out, s)
	}
}

func TestNewSlog(t *testing.T) {
	t.Run("json handler respects level", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := NewSlog(&buf, "json", "warn")
		require.NoError(t, err)

		log.Info(context.Background(), "hidden")
		log.Warn(context.Background(), "shown", "k", "v")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 1)
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
		assert.Equal(t, "shown", rec["msg"])
		assert.Equal(t, "v", rec["k"])
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := NewSlog(&bytes.Buffer{}, "text", "loud")
		assert.Error(t, err)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := NewSlog(&bytes.Buffer{}, "xml", "info")
		assert.Error(t, err)
	})
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop().With("a", 1).Error(context.TODO(), "dropped")
	})
}
