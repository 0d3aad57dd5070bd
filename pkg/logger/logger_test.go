package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_TextLevels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{Level: "warn", Output: &buf}))
	t.Cleanup(Close)

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestInit_JSONWithFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "etl.log")
	require.NoError(t, Init(Options{Format: "json", File: path, Output: &buf}))

	Info("rows loaded", "rows", 3)
	Close()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "rows loaded", rec["msg"])
	assert.Equal(t, float64(3), rec["rows"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rows loaded")
}

func TestClose_ResetsLogger(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "etl.log")
	require.NoError(t, Init(Options{File: path, Output: &buf}))
	before := L()

	Close()
	assert.NotSame(t, before, L())

	Errorf("after close")
	assert.NotContains(t, buf.String(), "after close")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "after close")
}

func TestInit_Invalid(t *testing.T) {
	assert.Error(t, Init(Options{Level: "loud"}))
	assert.Error(t, Init(Options{Format: "xml"}))
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}
