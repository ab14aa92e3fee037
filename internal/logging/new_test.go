package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Formats(t *testing.T) {
	ctx := context.Background()

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(FormatText, "info", &buf)
		require.NoError(t, err)
		log.Info(ctx, "hello", "k", "v")
		assert.Contains(t, buf.String(), "msg=hello")
		assert.Contains(t, buf.String(), "k=v")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(FormatJSON, "info", &buf)
		require.NoError(t, err)
		log.Info(ctx, "hello", "k", "v")

		var m map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
		assert.Equal(t, "hello", m["msg"])
		assert.Equal(t, "v", m["k"])
	})

	t.Run("zap", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(FormatZap, "warn", &buf)
		require.NoError(t, err)
		log.Info(ctx, "dropped")
		log.Warn(ctx, "kept", "k", "v")

		out := buf.String()
		assert.NotContains(t, out, "dropped")
		assert.True(t, strings.Contains(out, `"msg":"kept"`), out)
	})

	t.Run("level filters debug", func(t *testing.T) {
		var buf bytes.Buffer
		log, err := New(FormatText, "info", &buf)
		require.NoError(t, err)
		log.Debug(ctx, "quiet")
		assert.Empty(t, buf.String())
	})
}

func TestNew_Errors(t *testing.T) {
	_, err := New("xml", "info", &bytes.Buffer{})
	require.Error(t, err)

	_, err = New(FormatText, "loud", &bytes.Buffer{})
	require.Error(t, err)
}

func TestNop_DoesNotPanic(t *testing.T) {
	log := Nop()
	log.Info(context.Background(), "x")
	log.With("a", 1).Error(context.Background(), "y")
}
