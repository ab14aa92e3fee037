package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), sc.Text())
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	ctx := context.Background()

	log.Debug(ctx, "transition", "state", "encoding")
	log.Info(ctx, "delivered", "id", "r-1")
	log.Warn(ctx, "queue nearly full", "pending", 9)
	log.Error(ctx, "sweep failed", "error", "boom")

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 4)

	want := []struct{ level, msg, key string }{
		{"DEBUG", "transition", "state"},
		{"INFO", "delivered", "id"},
		{"WARN", "queue nearly full", "pending"},
		{"ERROR", "sweep failed", "error"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, lines[i]["level"])
		assert.Equal(t, w.msg, lines[i]["msg"])
		assert.Contains(t, lines[i], w.key)
	}
}

func TestSlogLogger_WithTagsModule(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	base.With("module", "queue").Info(context.TODO(), "enqueued", "id", "r-2")
	base.Info(context.TODO(), "untagged")

	lines := jsonLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "queue", lines[0]["module"])
	assert.Equal(t, "r-2", lines[0]["id"])
	assert.NotContains(t, lines[1], "module")
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
