package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semaforo/internal/platform/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.LogConfig{Level: "debug", Format: "json"})

	log.Debug("semaforo refreshed", "organization_id", "abc")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "semaforo refreshed", line["msg"])
	assert.Equal(t, "semaforo", line["service"])
	assert.Equal(t, "abc", line["organization_id"])
}

func TestNewWithWriter_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.LogConfig{Level: "warn", Format: "text"})

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
