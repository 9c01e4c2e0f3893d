package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"medical-rag-chatbot/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo, false)

	log.Debug("hidden")
	log.Warn("skipping unreadable document", "path", "bad.pdf")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "skipping unreadable document", entry["msg"])
	assert.Equal(t, "bad.pdf", entry["path"])
}

func TestGet_FallsBackToDefault(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	Logger = nil
	assert.Same(t, slog.Default(), Get())

	InitLogger(&config.Config{GinMode: "release"})
	assert.Same(t, Logger, Get())
	assert.False(t, Get().Enabled(context.Background(), slog.LevelDebug))
}
