package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/catalog-chat/internal/config"
	"github.com/kyleking/catalog-chat/internal/errors"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:        "config",
		Usage:       "Display the active configuration",
		Description: `Show the current active configuration including all settings from file, environment variables, and command-line flags.`,
		Action: withConfig(func(ctx context.Context, cmd *cli.Command, _ *config.Config) error {
			return runConfig(ctx, writerOf(cmd))
		}),
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the active configuration to the config file",
				Action: withConfig(func(_ context.Context, cmd *cli.Command, cfg *config.Config) error {
					if err := config.SaveConfig(cfg); err != nil {
						return err
					}

					if err := cfg.EnsureDirectories(); err != nil {
						return err
					}

					fmt.Fprintf(writerOf(cmd), "Configuration written to %s\n", config.GetConfigDir())

					return nil
				}),
			},
		},
	}
}

func runConfig(ctx context.Context, w io.Writer) error {
	cfg := getConfigFromContext(ctx)
	if cfg == nil {
		return errors.NewConfigError("failed to load configuration", "")
	}

	fmt.Fprintln(w, "====================")
	fmt.Fprintln(w, "Active Configuration:")

	fmt.Fprintln(w, "\nCatalog:")
	fmt.Fprintf(w, "  Source: %s\n", cfg.Catalog.Source)

	switch cfg.Catalog.Source {
	case config.SourceFile:
		fmt.Fprintf(w, "  File: %s\n", cfg.Catalog.File)
	case config.SourcePostgres:
		fmt.Fprintln(w, "  Postgres DSN: (set)")
	}

	fmt.Fprintf(w, "  Base URL: %s\n", cfg.Catalog.BaseURL)
	fmt.Fprintf(w, "  Token: %s\n", setOrUnset(cfg.Catalog.Token))
	fmt.Fprintf(w, "  Timeout: %s\n", cfg.Catalog.Timeout)
	fmt.Fprintf(w, "  Cache TTL: %s\n", cfg.Catalog.CacheTTL)

	fmt.Fprintln(w, "\nExecution:")
	fmt.Fprintf(w, "  Timeout: %s\n", cfg.Execution.Timeout)
	fmt.Fprintf(w, "  Top K: %d\n", cfg.Execution.TopK)
	fmt.Fprintf(w, "  Default Strategy: %s\n", cfg.Execution.DefaultStrategy)
	fmt.Fprintf(w, "  Record History: %t\n", cfg.Execution.RecordHistory)

	fmt.Fprintln(w, "\nStorage:")
	fmt.Fprintf(w, "  History: %s\n", cfg.Storage.HistoryPath)
	fmt.Fprintf(w, "  Preferences: %s\n", cfg.Storage.PrefsPath)
	fmt.Fprintf(w, "  Prompt History: %s\n", cfg.Storage.ReadlineLog)

	fmt.Fprintln(w, "\nCache:")
	fmt.Fprintf(w, "  Directory: %s\n", cfg.Cache.Directory)
	fmt.Fprintf(w, "  Max Size: %d MB\n", cfg.Cache.MaxSizeMB)
	fmt.Fprintf(w, "  Cleanup Frequency: %s\n", cfg.Cache.CleanupFreq)
	fmt.Fprintf(w, "  Disabled: %t\n", cfg.Cache.Disabled)

	fmt.Fprintln(w, "\nLogging:")
	fmt.Fprintf(w, "  Level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(w, "  Format: %s\n", cfg.Logging.Format)
	fmt.Fprintf(w, "  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Fprintf(w, "  File: %s\n", cfg.Logging.File)
		fmt.Fprintf(w, "  Max Size: %d MB\n", cfg.Logging.MaxSizeMB)
		fmt.Fprintf(w, "  Max Backups: %d\n", cfg.Logging.MaxBackups)
		fmt.Fprintf(w, "  Max Age: %d days\n", cfg.Logging.MaxAgeDays)
	}

	fmt.Fprintf(w, "  Add Source: %t\n", cfg.Logging.AddSource)

	fmt.Fprintln(w, "\nDebug:")
	fmt.Fprintf(w, "  Enabled: %t\n", cfg.Debug.Enabled)
	fmt.Fprintf(w, "  Verbose: %t\n", cfg.Debug.Verbose)

	if cfg.Debug.Enabled {
		fmt.Fprintln(w, "\nRaw Configuration (JSON):")
		fmt.Fprintln(w, "==========================")

		jsonData, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}

		fmt.Fprintln(w, string(jsonData))
	}

	return nil
}

func setOrUnset(s string) string {
	if s == "" {
		return "(unset)"
	}

	return "(set)"
}
