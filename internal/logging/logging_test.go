package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Options{Level: "chatty"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chatty")
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gonetcap.log")
	log, err := New(Options{Level: "debug", File: path, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1})
	require.NoError(t, err)

	log.Named("session").Info("capture started", zap.String("device", "eth0"))
	require.NoError(t, log.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "session", entry["logger"])
	assert.Equal(t, "capture started", entry["msg"])
	assert.Equal(t, "eth0", entry["device"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := newZap(zapcore.WarnLevel, zapcore.AddSync(&buf))

	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, `"msg":"kept"`)
}
