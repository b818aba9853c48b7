package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/catalog-chat/internal/catalog"
	"github.com/kyleking/catalog-chat/internal/config"
	"github.com/kyleking/catalog-chat/internal/errors"
	"github.com/kyleking/catalog-chat/internal/formatter"
)

const defaultSearchLimit = 10

func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the catalog without starting a conversation",
		ArgsUsage: "<query>",
		Description: `Rank catalog tables against a free-text query and print the best matches
with the keywords and columns that matched.`,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: defaultSearchLimit, Usage: "Maximum number of results (1-50)"},
			&cli.BoolFlag{Name: "long", Usage: "Include catalog path and match reason"},
			&cli.BoolFlag{Name: "short", Usage: "Only id, title, year and source"},
		},
		Action: withConfig(func(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
			query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if query == "" {
				return errors.New(errors.ErrTypeValidation, "search query cannot be empty")
			}

			format := formatter.FormatLong
			if cmd.Bool("short") && !cmd.Bool("long") {
				format = formatter.FormatShort
			}

			snap, err := loadCatalog(ctx, cfg)
			if err != nil {
				return err
			}

			return runSearchWithSnapshot(writerOf(cmd), formatter.NewFormatter(false, 0), snap, query, int(cmd.Int("limit")), format)
		}),
	}
}

func runSearchWithSnapshot(
	w io.Writer,
	f *formatter.Formatter,
	snap *catalog.Snapshot,
	query string,
	limit int,
	format formatter.OutputFormat,
) error {
	if limit < 1 || limit > 50 {
		return errors.New(errors.ErrTypeValidation, "limit must be between 1 and 50")
	}

	matches := snap.Search(query, limit)
	if len(matches) == 0 {
		fmt.Fprintf(w, "No tables found for %q.\n", query)
		return nil
	}

	suggestions := make([]catalog.Suggestion, len(matches))
	for i, m := range matches {
		suggestions[i] = catalog.NewSuggestion(m.Document, catalog.ExplainMatch(query, m.Document))
	}

	fmt.Fprintln(w, f.FormatSuggestions(suggestions, format))

	return nil
}
