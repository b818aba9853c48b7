package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable the configuration reads
const EnvPrefix = "CATALOG_CHAT_"

// Catalog source kinds
const (
	SourceHTTP     = "http"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	Catalog   CatalogConfig   `json:"catalog"`
	Execution ExecutionConfig `json:"execution"`
	Storage   StorageConfig   `json:"storage"`
	Cache     CacheConfig     `json:"cache"`
	Logging   LoggingConfig   `json:"logging"`
	Debug     DebugConfig     `json:"debug"`
}

// CatalogConfig describes where the table catalog is loaded from
type CatalogConfig struct {
	Source      string `json:"source"       env:"CATALOG_SOURCE"       envDefault:"http"` // http, file, postgres
	BaseURL     string `json:"base_url"     env:"BASE_URL"             envDefault:"http://localhost:8000"`
	File        string `json:"file"         env:"CATALOG_FILE"`
	PostgresDSN string `json:"postgres_dsn" env:"CATALOG_POSTGRES_DSN"`
	Token       string `json:"-"            env:"TOKEN"`
	Timeout     string `json:"timeout"      env:"CATALOG_TIMEOUT"      envDefault:"30s"`
	CacheTTL    string `json:"cache_ttl"    env:"CATALOG_CACHE_TTL"    envDefault:"1h"`
}

// ExecutionConfig controls query submission
type ExecutionConfig struct {
	Timeout         string `json:"timeout"          env:"EXEC_TIMEOUT"  envDefault:"60s"`
	TopK            int    `json:"top_k"            env:"EXEC_TOP_K"    envDefault:"100"`
	DefaultStrategy string `json:"default_strategy" env:"EXEC_STRATEGY" envDefault:"ask/fc/args"`
	RecordHistory   bool   `json:"record_history"   env:"EXEC_HISTORY"  envDefault:"true"`
}

// StorageConfig represents on-disk stores
type StorageConfig struct {
	HistoryPath string `json:"history_path" env:"HISTORY_PATH" envDefault:"~/.config/catalog-chat/history.db"`
	PrefsPath   string `json:"prefs_path"   env:"PREFS_PATH"   envDefault:"~/.config/catalog-chat/prefs.bolt"`
	ReadlineLog string `json:"readline_log" env:"READLINE_LOG" envDefault:"~/.config/catalog-chat/chat_history"`
}

// CacheConfig represents caching configuration
type CacheConfig struct {
	Directory   string `json:"directory"         env:"CACHE_DIR"          envDefault:"~/.cache/catalog-chat"`
	MaxSizeMB   int    `json:"max_size_mb"       env:"CACHE_MAX_SIZE_MB"  envDefault:"100"`
	CleanupFreq string `json:"cleanup_frequency" env:"CACHE_CLEANUP_FREQ" envDefault:"1h"`
	Disabled    bool   `json:"disabled"          env:"CACHE_DISABLED"     envDefault:"false"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `json:"level"        env:"LOG_LEVEL"        envDefault:"warn"`                                 // debug, info, warn, error
	Format     string `json:"format"       env:"LOG_FORMAT"       envDefault:"text"`                                 // text, json
	Output     string `json:"output"       env:"LOG_OUTPUT"       envDefault:"stderr"`                               // stdout, stderr, file
	File       string `json:"file"         env:"LOG_FILE"         envDefault:"~/.config/catalog-chat/logs/app.log"` // log file path when output is file
	MaxSizeMB  int    `json:"max_size_mb"  env:"LOG_MAX_SIZE_MB"  envDefault:"10"`
	MaxBackups int    `json:"max_backups"  env:"LOG_MAX_BACKUPS"  envDefault:"5"`
	MaxAgeDays int    `json:"max_age_days" env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
	AddSource  bool   `json:"add_source"   env:"LOG_ADD_SOURCE"   envDefault:"false"`
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" env:"DEBUG"   envDefault:"false"`
	Verbose bool `json:"verbose" env:"VERBOSE" envDefault:"false"`
}

// DefaultConfig returns the configuration populated only from envDefault tags
func DefaultConfig() *Config {
	cfg := &Config{}
	_ = env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: map[string]string{},
	})

	return cfg
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	// A missing .env is the common case
	_ = godotenv.Load()

	config := DefaultConfig()

	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := applyEnvironmentOverrides(config); err != nil {
		return nil, err
	}

	if flagOverrides != nil {
		if err := applyFlagOverrides(config, flagOverrides); err != nil {
			return nil, fmt.Errorf("failed to apply flag overrides: %w", err)
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvironmentOverrides applies the environment variables that differ from defaults
func applyEnvironmentOverrides(config *Config) error {
	fromEnv := &Config{}
	if err := env.ParseWithOptions(fromEnv, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment variables: %w", err)
	}

	mergeConfigs(config, fromEnv, DefaultConfig())

	return nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Keys absent from the file keep their current values
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) error {
	for key, value := range overrides {
		switch key {
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "catalog-source":
			if str, ok := value.(string); ok && str != "" {
				config.Catalog.Source = str
			}
		case "catalog-file":
			if str, ok := value.(string); ok && str != "" {
				config.Catalog.File = str
				config.Catalog.Source = SourceFile
			}
		case "base-url":
			if str, ok := value.(string); ok && str != "" {
				config.Catalog.BaseURL = str
			}
		case "db-path":
			if str, ok := value.(string); ok && str != "" {
				config.Storage.HistoryPath = str
			}
		case "cache-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Cache.Directory = str
			}
		case "no-cache":
			if b, ok := value.(bool); ok && b {
				config.Cache.Disabled = true
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
				if b {
					config.Logging.Level = "debug"
				}
			}
		default:
			return fmt.Errorf("unknown flag override: %s", key)
		}
	}

	return nil
}

// mergeConfigs copies into target every field of source that differs from base
func mergeConfigs(target, source, base *Config) {
	var mergeValues func(t, s, b reflect.Value)
	mergeValues = func(t, s, b reflect.Value) {
		if t.Kind() == reflect.Struct {
			for i := range s.NumField() {
				mergeValues(t.Field(i), s.Field(i), b.Field(i))
			}

			return
		}

		if !reflect.DeepEqual(s.Interface(), b.Interface()) {
			t.Set(s)
		}
	}

	mergeValues(
		reflect.ValueOf(target).Elem(),
		reflect.ValueOf(source).Elem(),
		reflect.ValueOf(base).Elem(),
	)
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{"stdout": true, "stderr": true, "file": true}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	switch config.Catalog.Source {
	case SourceHTTP:
		if config.Catalog.BaseURL == "" {
			return fmt.Errorf("base url is required when catalog source is %s", SourceHTTP)
		}
	case SourceFile:
		if config.Catalog.File == "" {
			return fmt.Errorf("catalog file is required when catalog source is %s", SourceFile)
		}
	case SourcePostgres:
		if config.Catalog.PostgresDSN == "" {
			return fmt.Errorf("postgres dsn is required when catalog source is %s", SourcePostgres)
		}
	default:
		return fmt.Errorf(
			"invalid catalog source: %s (must be http, file, or postgres)",
			config.Catalog.Source,
		)
	}

	durations := map[string]string{
		"catalog timeout":         config.Catalog.Timeout,
		"catalog cache ttl":       config.Catalog.CacheTTL,
		"execution timeout":       config.Execution.Timeout,
		"cache cleanup frequency": config.Cache.CleanupFreq,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %s", name, value)
		}
	}

	if config.Execution.TopK <= 0 {
		return fmt.Errorf("execution top_k must be positive: %d", config.Execution.TopK)
	}

	if config.Cache.MaxSizeMB <= 0 {
		return fmt.Errorf("cache max size must be positive: %d", config.Cache.MaxSizeMB)
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configPath := getConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Duration parses a duration string already checked by validateConfig
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}

	return d
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv(EnvPrefix + "CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Catalog.File = expandPath(c.Catalog.File)
	c.Storage.HistoryPath = expandPath(c.Storage.HistoryPath)
	c.Storage.PrefsPath = expandPath(c.Storage.PrefsPath)
	c.Storage.ReadlineLog = expandPath(c.Storage.ReadlineLog)
	c.Cache.Directory = expandPath(c.Cache.Directory)
	c.Logging.File = expandPath(c.Logging.File)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/catalog-chat"
	}

	return filepath.Join(homeDir, ".config", "catalog-chat")
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Storage.HistoryPath),
		filepath.Dir(c.Storage.PrefsPath),
		c.Cache.Directory,
	}

	if c.Logging.Output == "file" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
