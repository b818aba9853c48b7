package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/catalog-chat/internal/config"
	"github.com/kyleking/catalog-chat/internal/formatter"
	"github.com/kyleking/catalog-chat/internal/storage"
)

func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:        "stats",
		Usage:       "Display execution history statistics",
		Description: `Show the number of submitted queries, failures, average duration, database size and the most queried tables.`,
		Action: withConfig(func(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
			repo, err := initializeStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			return runStatsWithStorage(ctx, writerOf(cmd), repo)
		}),
	}
}

func runStatsWithStorage(ctx context.Context, w io.Writer, repo storage.Repository) error {
	stats, err := repo.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	fmt.Fprintln(w, formatter.NewFormatter(false, 0).FormatStats(stats))

	return nil
}
