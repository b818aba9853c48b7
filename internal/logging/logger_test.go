package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/kyleking/catalog-chat/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"ERROR", ErrorLevel},
		{"invalid", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func bufferLogger(level, format string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer

	logger := newLogger(config.LoggingConfig{Level: level, Format: format}, zapcore.AddSync(&buf))

	return logger, &buf
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := bufferLogger("warn", "text")

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warn")
	logger.Errorf("visible %s", "error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, "visible error")
}

func TestJSONFormatWithFields(t *testing.T) {
	logger, buf := bufferLogger("info", "json")

	logger.WithFields(map[string]interface{}{"table": "uso_solo_2021", "rows": 3}).
		WithError(errors.New("boom")).
		Info("query executed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "query executed", entry["message"])
	assert.Equal(t, "uso_solo_2021", entry["table"])
	assert.EqualValues(t, 3, entry["rows"])
	assert.Equal(t, "boom", entry["error"])
	assert.Contains(t, entry, "timestamp")
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	logger, buf := bufferLogger("info", "json")

	_ = logger.WithField("strategy", "ask")
	logger.Info("plain")

	assert.NotContains(t, buf.String(), "strategy")
}

func TestWithErrorNil(t *testing.T) {
	logger, _ := bufferLogger("info", "text")
	assert.Same(t, logger, logger.WithError(nil))
}

func TestNewLoggerInvalidOutput(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "syslog"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log output")
}

func TestNewLoggerFileRequiresPath(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "file"})
	require.Error(t, err)
}

func TestNewLoggerFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger(config.LoggingConfig{
		Level:      "info",
		Format:     "text",
		Output:     "file",
		File:       logFile,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	})
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, logger.Close())

	assert.FileExists(t, logFile)
}

func TestGetLoggerBeforeInit(t *testing.T) {
	saved := globalLogger
	globalLogger = nil

	t.Cleanup(func() { globalLogger = saved })

	assert.NotNil(t, GetLogger())
	assert.NotNil(t, WithField("k", "v"))
	Info("does not panic")
}

func TestTrack(t *testing.T) {
	saved := globalLogger

	logger, buf := bufferLogger("debug", "text")
	globalLogger = logger

	t.Cleanup(func() { globalLogger = saved })

	require.NoError(t, Track("ok-op", func() error { return nil }))

	err := Track("bad-op", func() error { return errors.New("nope") })
	require.Error(t, err)

	out := buf.String()
	assert.True(t, strings.Contains(out, "Operation completed successfully"))
	assert.Contains(t, out, "Operation failed")
	assert.Contains(t, out, "bad-op")
}
