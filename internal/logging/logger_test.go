package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewLogger verifies basic logger creation
func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  string
	}{
		{"JSON Info", "json", "info"},
		{"JSON Debug", "json", "debug"},
		{"JSON Error", "json", "error"},
		{"Console Info", "console", "info"},
		{"Text Debug", "text", "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(Config{Format: tt.format, Level: tt.level, Output: &buf})
			require.NoError(t, err)
			logger.Error().Msg("heartbeat")
			assert.Contains(t, buf.String(), "heartbeat")
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(Config{Format: "json", Level: "invalid"})
	assert.Error(t, err)
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Format: "json", Level: "warn", Output: &buf})
	require.NoError(t, err)

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Format: "json", Level: "info", Output: &buf})
	require.NoError(t, err)

	logger.Info().Uint64("page", 9).Msg("json test")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "json test", entry["message"])
	assert.Equal(t, float64(9), entry["page"])
	assert.Contains(t, entry, "time")
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewLogger(Config{Format: "json", Level: "info", Output: &buf})
	require.NoError(t, err)

	child := base.With().Str("component", "hlm").Logger()
	child.Info().Msg("message with component")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hlm", entry["component"])
}

func TestLoggingMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Format: "json", Level: "debug", Output: &buf})
	require.NoError(t, err)

	beforeWarn := testutil.ToFloat64(LogEntriesTotal.WithLabelValues(zerolog.WarnLevel.String()))
	beforeErrors := testutil.ToFloat64(LogErrorsTotal)

	logger.Warn().Msg("w1")
	logger.Warn().Msg("w2")
	logger.Error().Msg("e1")

	assert.Equal(t, beforeWarn+2, testutil.ToFloat64(LogEntriesTotal.WithLabelValues(zerolog.WarnLevel.String())))
	assert.Equal(t, beforeErrors+1, testutil.ToFloat64(LogErrorsTotal))
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger()
	logger.Info().Msg("this should be discarded")
	logger.Error().Msg("this too")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "info", cfg.Level)
	assert.NotNil(t, cfg.Output)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel(strings.Repeat("x", 3))
	assert.Error(t, err)
}
