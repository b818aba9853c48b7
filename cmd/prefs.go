package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/catalog-chat/internal/config"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/prefs"
)

func PrefsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Show or change saved preferences",
		Description: `Preferences are loaded by every chat session: whether the backend explains
its answers and which execution strategy is tried first.`,
		Action: withPrefs(func(_ context.Context, cmd *cli.Command, cfg *config.Config, store *prefs.Store) error {
			return runPrefsShow(writerOf(cmd), store, cfg.Execution.DefaultStrategy)
		}),
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Change a preference",
				ArgsUsage: "<explain|strategy> <value>",
				Action: withPrefs(func(_ context.Context, cmd *cli.Command, _ *config.Config, store *prefs.Store) error {
					if cmd.Args().Len() != 2 {
						return errors.New(errors.ErrTypeValidation, "usage: prefs set <explain|strategy> <value>")
					}

					return runPrefsSet(writerOf(cmd), store, cmd.Args().Get(0), cmd.Args().Get(1))
				}),
			},
			{
				Name:  "reset",
				Usage: "Remove saved preferences",
				Action: withPrefs(func(_ context.Context, cmd *cli.Command, _ *config.Config, store *prefs.Store) error {
					if err := store.Reset(); err != nil {
						return err
					}

					fmt.Fprintln(writerOf(cmd), "Preferences reset.")

					return nil
				}),
			},
		},
	}
}

func withPrefs(fn func(ctx context.Context, cmd *cli.Command, cfg *config.Config, store *prefs.Store) error) cli.ActionFunc {
	return withConfig(func(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
		store, err := openPrefs(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		return fn(ctx, cmd, cfg, store)
	})
}

func runPrefsShow(w io.Writer, store *prefs.Store, defaultStrategy string) error {
	settings, err := store.Load(defaultStrategy)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Explain: %t\n", settings.Explain)
	fmt.Fprintf(w, "Strategy: %s\n", settings.Strategy)

	return nil
}

func runPrefsSet(w io.Writer, store *prefs.Store, key, value string) error {
	switch key {
	case prefs.KeyExplain:
		on, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Newf(errors.ErrTypeValidation, "explain must be true or false, got %q", value)
		}

		if err := store.SaveExplain(on); err != nil {
			return err
		}
	case prefs.KeyStrategy:
		if err := store.SaveStrategy(value); err != nil {
			return err
		}
	default:
		return errors.Newf(errors.ErrTypeValidation, "unknown preference %q", key).
			WithSuggestion("Valid preferences: explain, strategy")
	}

	fmt.Fprintf(w, "Saved %s = %s\n", key, value)

	return nil
}
