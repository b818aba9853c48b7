package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/catalog-chat/internal/config"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
)

type configKey struct{}

// NewRootCommand builds the command tree
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog-chat",
		Usage: "Find catalog tables through conversation and build queries step by step",
		Description: `catalog-chat loads a table catalog, lets you search and select a table in
free text (Portuguese), walks you through columns, filters, grouping,
aggregations, ordering and limit, and submits the query to the execution
backend.`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug, info, warn, error"},
			&cli.StringFlag{Name: "catalog-source", Usage: "Catalog source: http, file or postgres"},
			&cli.StringFlag{Name: "catalog-file", Usage: "Load the catalog from a JSON file"},
			&cli.StringFlag{Name: "base-url", Usage: "Backend base URL"},
			&cli.StringFlag{Name: "db-path", Usage: "Execution history database path"},
			&cli.StringFlag{Name: "cache-dir", Usage: "Catalog cache directory"},
			&cli.BoolFlag{Name: "no-cache", Usage: "Always fetch a fresh catalog"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Verbose output"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Commands: []*cli.Command{
			ChatCommand(),
			SearchCommand(),
			DetailsCommand(),
			HistoryCommand(),
			PrefsCommand(),
			ConfigCommand(),
			ClearCommand(),
		},
	}
}

// Execute runs the CLI with the process arguments
func Execute() error {
	err := NewRootCommand().Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+errors.UserMessage(err))

		var appErr *errors.Error
		if stderrors.As(err, &appErr) {
			for _, s := range appErr.Suggestions {
				fmt.Fprintln(os.Stderr, "  • "+s)
			}
		}
	}

	return err
}

// withConfig loads the configuration from flags, environment and file,
// initializes logging, and passes both context and config to fn
func withConfig(fn func(ctx context.Context, cmd *cli.Command, cfg *config.Config) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := config.LoadConfigWithOverrides(flagOverrides(cmd))
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeConfig, "failed to load configuration")
		}

		cfg.ExpandAllPaths()

		if err := logging.InitializeLogger(cfg.Logging); err != nil {
			logging.SetupFallbackLogger()
			logging.WithError(err).Warn("Falling back to default logger")
		}

		return fn(context.WithValue(ctx, configKey{}, cfg), cmd, cfg)
	}
}

func flagOverrides(cmd *cli.Command) map[string]interface{} {
	overrides := make(map[string]interface{})

	for _, name := range []string{"log-level", "catalog-source", "catalog-file", "base-url", "db-path", "cache-dir"} {
		if cmd.IsSet(name) {
			overrides[name] = cmd.String(name)
		}
	}

	for _, name := range []string{"no-cache", "verbose", "debug"} {
		if cmd.IsSet(name) {
			overrides[name] = cmd.Bool(name)
		}
	}

	return overrides
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return cfg
	}

	return nil
}

func writerOf(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}

	return os.Stdout
}

func readerOf(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}

	return os.Stdin
}
