package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, SourceHTTP, cfg.Catalog.Source)
	assert.Equal(t, "http://localhost:8000", cfg.Catalog.BaseURL)
	assert.Equal(t, "1h", cfg.Catalog.CacheTTL)
	assert.Equal(t, 100, cfg.Execution.TopK)
	assert.Equal(t, "ask/fc/args", cfg.Execution.DefaultStrategy)
	assert.True(t, cfg.Execution.RecordHistory)
	assert.Equal(t, "~/.config/catalog-chat/history.db", cfg.Storage.HistoryPath)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.False(t, cfg.Debug.Enabled)
}

func TestDefaultConfigIgnoresEnvironment(t *testing.T) {
	t.Setenv("CATALOG_CHAT_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfigFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")

	fileConfig := map[string]interface{}{
		"catalog": map[string]interface{}{
			"source": "file",
			"file":   "/data/catalog.json",
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "json",
		},
		"debug": map[string]interface{}{
			"enabled": true,
		},
	}

	data, err := json.MarshalIndent(fileConfig, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	config := DefaultConfig()
	require.NoError(t, loadConfigFromFile(config, configPath))

	assert.Equal(t, SourceFile, config.Catalog.Source)
	assert.Equal(t, "/data/catalog.json", config.Catalog.File)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.True(t, config.Debug.Enabled)

	// Untouched keys keep their defaults
	assert.Equal(t, "stderr", config.Logging.Output)
	assert.True(t, config.Execution.RecordHistory)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0600))

	err := loadConfigFromFile(DefaultConfig(), configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	envVars := map[string]string{
		"CATALOG_CHAT_CATALOG_SOURCE":       "postgres",
		"CATALOG_CHAT_CATALOG_POSTGRES_DSN": "postgres://localhost/catalog",
		"CATALOG_CHAT_TOKEN":                "secret",
		"CATALOG_CHAT_EXEC_TOP_K":           "250",
		"CATALOG_CHAT_EXEC_HISTORY":         "false",
		"CATALOG_CHAT_CACHE_DIR":            "/env/cache",
		"CATALOG_CHAT_LOG_LEVEL":            "info",
		"CATALOG_CHAT_DEBUG":                "true",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	config := DefaultConfig()
	require.NoError(t, applyEnvironmentOverrides(config))

	assert.Equal(t, SourcePostgres, config.Catalog.Source)
	assert.Equal(t, "postgres://localhost/catalog", config.Catalog.PostgresDSN)
	assert.Equal(t, "secret", config.Catalog.Token)
	assert.Equal(t, 250, config.Execution.TopK)
	assert.False(t, config.Execution.RecordHistory)
	assert.Equal(t, "/env/cache", config.Cache.Directory)
	assert.Equal(t, "info", config.Logging.Level)
	assert.True(t, config.Debug.Enabled)
}

func TestEnvironmentDoesNotClobberFileValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"logging":{"format":"json"}}`), 0600))

	t.Setenv("CATALOG_CHAT_CONFIG", configPath)
	t.Setenv("CATALOG_CHAT_LOG_LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := DefaultConfig()

	err := applyFlagOverrides(config, map[string]interface{}{
		"catalog-file": "/tmp/catalog.json",
		"base-url":     "https://api.example.org",
		"db-path":      "/tmp/history.db",
		"no-cache":     true,
		"debug":        true,
	})
	require.NoError(t, err)

	assert.Equal(t, SourceFile, config.Catalog.Source)
	assert.Equal(t, "/tmp/catalog.json", config.Catalog.File)
	assert.Equal(t, "https://api.example.org", config.Catalog.BaseURL)
	assert.Equal(t, "/tmp/history.db", config.Storage.HistoryPath)
	assert.True(t, config.Cache.Disabled)
	assert.True(t, config.Debug.Enabled)
	assert.Equal(t, "debug", config.Logging.Level)

	err = applyFlagOverrides(config, map[string]interface{}{"bogus": 1})
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errSubstr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }, "invalid log output"},
		{"bad source", func(c *Config) { c.Catalog.Source = "ftp" }, "invalid catalog source"},
		{"file source without file", func(c *Config) { c.Catalog.Source = SourceFile }, "catalog file is required"},
		{"postgres without dsn", func(c *Config) { c.Catalog.Source = SourcePostgres }, "postgres dsn is required"},
		{"http without url", func(c *Config) { c.Catalog.BaseURL = "" }, "base url is required"},
		{"bad timeout", func(c *Config) { c.Execution.Timeout = "soon" }, "invalid execution timeout"},
		{"non-positive top k", func(c *Config) { c.Execution.TopK = 0 }, "top_k must be positive"},
		{"non-positive cache", func(c *Config) { c.Cache.MaxSizeMB = 0 }, "cache max size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, Duration("30s", time.Minute))
	assert.Equal(t, time.Minute, Duration("nope", time.Minute))
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(homeDir, "test"), expandPath("~/test"))
	assert.Equal(t, homeDir, expandPath("~"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.Equal(t, "~user/path", expandPath("~user/path"))
}

func TestEnsureDirectories(t *testing.T) {
	tempDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Storage.HistoryPath = filepath.Join(tempDir, "data", "history.db")
	cfg.Storage.PrefsPath = filepath.Join(tempDir, "data", "prefs.bolt")
	cfg.Cache.Directory = filepath.Join(tempDir, "cache")

	require.NoError(t, cfg.EnsureDirectories())

	assert.DirExists(t, filepath.Join(tempDir, "data"))
	assert.DirExists(t, filepath.Join(tempDir, "cache"))
}
