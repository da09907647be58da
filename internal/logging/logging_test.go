package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	logger.Debug().Msg("hidden")
	logger.Info().Str("service", "lifecycle").Msg("transition committed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "transition committed", entry["message"])
	assert.Equal(t, "lifecycle", entry["service"])
	assert.Equal(t, "facility-hub", entry["app"])
}

func TestNewWritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	logger := New(Options{Level: "warn", File: file, MaxSizeMB: 1})

	logger.Info().Msg("skipped")
	logger.Warn().Msg("kept")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "skipped")
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	logger := New(Options{Level: "loud"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
