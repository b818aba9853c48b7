package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/catalog-chat/internal/config"
	"github.com/kyleking/catalog-chat/internal/storage"
)

func ClearCommand() *cli.Command {
	return &cli.Command{
		Name:        "clear",
		Usage:       "Clear the execution history",
		Description: `Remove every recorded execution. This action requires confirmation.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Skip confirmation prompt"},
		},
		Action: withConfig(func(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
			repo, err := initializeStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			return runClearWithStorage(ctx, readerOf(cmd), writerOf(cmd), cmd.Bool("force"), repo)
		}),
	}
}

func runClearWithStorage(ctx context.Context, in io.Reader, w io.Writer, force bool, repo storage.Repository) error {
	stats, err := repo.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	if stats.TotalExecutions == 0 {
		fmt.Fprintln(w, "History is already empty.")
		return nil
	}

	fmt.Fprintf(w, "This will delete:\n")
	fmt.Fprintf(w, "  • %d executions\n", stats.TotalExecutions)
	fmt.Fprintf(w, "  • %.2f MB of data\n", stats.DatabaseSizeMB)

	if !force {
		fmt.Fprintf(w, "\nAre you sure you want to clear the history? This action cannot be undone.\n")
		fmt.Fprintf(w, "Type 'yes' to confirm: ")

		response, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && response == "" {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if strings.TrimSpace(strings.ToLower(response)) != "yes" {
			fmt.Fprintln(w, "Operation cancelled.")
			return nil
		}
	}

	if err := repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintln(w, "History cleared successfully.")

	return nil
}
