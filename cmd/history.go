package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/catalog-chat/internal/config"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/formatter"
	"github.com/kyleking/catalog-chat/internal/storage"
)

func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect submitted queries",
		Description: `List the execution attempts recorded by chat sessions, newest first.
Every attempt is kept, including failed primary attempts that were retried
with the fallback strategy.`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum number of records"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Number of records to skip"},
			&cli.BoolFlag{Name: "long", Usage: "Show question, error, answer and payload"},
		},
		Action: withConfig(func(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
			repo, err := initializeStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			format := formatter.FormatShort
			if cmd.Bool("long") {
				format = formatter.FormatLong
			}

			return runHistoryWithStorage(ctx, writerOf(cmd), repo, int(cmd.Int("limit")), int(cmd.Int("offset")), format)
		}),
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show one execution",
				ArgsUsage: "<id>",
				Action: withConfig(func(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
					if cmd.Args().Len() == 0 {
						return errors.New(errors.ErrTypeValidation, "execution id is required")
					}

					repo, err := initializeStorage(ctx, cfg)
					if err != nil {
						return err
					}
					defer repo.Close()

					return runHistoryShowWithStorage(ctx, writerOf(cmd), repo, cmd.Args().First())
				}),
			},
			StatsCommand(),
			migrateCommand(),
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Show or change the history schema version",
		Description: `Without flags, list every schema migration and whether it is applied.
--up applies pending migrations; --down rolls back to the given version
(0 removes the history tables). Other commands migrate up on startup.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "up", Usage: "Apply pending migrations"},
			&cli.IntFlag{Name: "down", Usage: "Roll back to this schema version"},
		},
		Action: withConfig(func(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
			if cmd.Bool("up") && cmd.IsSet("down") {
				return errors.New(errors.ErrTypeValidation, "--up and --down cannot be combined")
			}

			repo, err := storage.NewDuckDBRepository(cfg.Storage.HistoryPath)
			if err != nil {
				return errors.Wrap(err, errors.ErrTypeStorage, "failed to open history database")
			}
			defer repo.Close()

			down := -1
			if cmd.IsSet("down") {
				down = int(cmd.Int("down"))
			}

			return runMigrate(ctx, writerOf(cmd), repo.Migrations(), cmd.Bool("up"), down)
		}),
	}
}

// runMigrate applies the requested change, if any, then prints the status.
// A negative down leaves the schema as is.
func runMigrate(ctx context.Context, w io.Writer, mm *storage.MigrationManager, up bool, down int) error {
	switch {
	case up:
		if err := mm.MigrateUp(ctx); err != nil {
			return errors.Wrap(err, errors.ErrTypeStorage, "failed to apply migrations")
		}
	case down >= 0:
		if err := mm.InitializeMigrationTable(ctx); err != nil {
			return errors.Wrap(err, errors.ErrTypeStorage, "failed to prepare migration table")
		}

		if err := mm.MigrateDown(ctx, down); err != nil {
			return errors.Wrap(err, errors.ErrTypeStorage, "failed to roll back migrations")
		}
	}

	status, err := mm.GetMigrationStatus(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to read migration status")
	}

	versions := make([]int, 0, len(status))
	for v := range status {
		versions = append(versions, v)
	}

	sort.Ints(versions)

	for _, v := range versions {
		st := status[v]

		state := "pending"
		if st.Applied {
			state = "applied"
		}

		fmt.Fprintf(w, "%3d  %-8s %s\n", st.Version, state, st.Description)
	}

	return nil
}

func runHistoryWithStorage(
	ctx context.Context,
	w io.Writer,
	repo storage.Repository,
	limit, offset int,
	format formatter.OutputFormat,
) error {
	if limit < 1 {
		return errors.New(errors.ErrTypeValidation, "limit must be positive")
	}

	if offset < 0 {
		return errors.New(errors.ErrTypeValidation, "offset cannot be negative")
	}

	records, err := repo.ListExecutions(ctx, limit, offset)
	if err != nil {
		return fmt.Errorf("failed to list executions: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No executions recorded.")
		return nil
	}

	f := formatter.NewFormatter(false, 0)

	for i, rec := range records {
		if i > 0 && format == formatter.FormatLong {
			fmt.Fprintln(w)
		}

		fmt.Fprintln(w, f.FormatExecution(rec, format))
	}

	return nil
}

func runHistoryShowWithStorage(ctx context.Context, w io.Writer, repo storage.Repository, id string) error {
	rec, err := repo.GetExecution(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, formatter.NewFormatter(false, 0).FormatExecution(*rec, formatter.FormatLong))

	return nil
}
