package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/catalog-chat/internal/config"
)

func TestRunConfig(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(*config.Config)
		contains []string
		absent   []string
	}{
		{
			name: "defaults",
			contains: []string{
				"Active Configuration:",
				"Catalog:",
				"Source: http",
				"Base URL: http://localhost:8000",
				"Token: (unset)",
				"Top K: 100",
				"Default Strategy: ask/fc/args",
				"Record History: true",
				"Level: warn",
				"Enabled: false",
			},
			absent: []string{"Raw Configuration", "Max Backups"},
		},
		{
			name: "file source with token and file logging",
			modify: func(c *config.Config) {
				c.Catalog.Source = config.SourceFile
				c.Catalog.File = "/tmp/catalog.json"
				c.Catalog.Token = "secret"
				c.Logging.Output = "file"
			},
			contains: []string{"File: /tmp/catalog.json", "Token: (set)", "Max Backups: 5"},
			absent:   []string{"secret"},
		},
		{
			name:     "debug prints raw json without token",
			modify:   func(c *config.Config) { c.Debug.Enabled = true; c.Catalog.Token = "secret" },
			contains: []string{"Raw Configuration (JSON):", `"default_strategy": "ask/fc/args"`},
			absent:   []string{"secret"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			if tt.modify != nil {
				tt.modify(cfg)
			}

			var out bytes.Buffer

			ctx := context.WithValue(context.Background(), configKey{}, cfg)
			require.NoError(t, runConfig(ctx, &out))

			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}

			for _, notWant := range tt.absent {
				assert.NotContains(t, out.String(), notWant)
			}
		})
	}
}

func TestRunConfigWithoutConfig(t *testing.T) {
	var out bytes.Buffer

	assert.Error(t, runConfig(context.Background(), &out))
}
