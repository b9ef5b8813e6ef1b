package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	level, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "escaperoom.log")
	var console bytes.Buffer
	log, err := New(Options{Level: "info", Path: path, Console: &console})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("session opened", zap.String("session_id", "s1"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"session opened"`)
	assert.Contains(t, string(data), `"session_id":"s1"`)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, console.String(), "session opened")
}

func TestNewWithoutOutputsIsNop(t *testing.T) {
	log, err := New(Options{})
	require.NoError(t, err)
	log.Info("dropped")
}
