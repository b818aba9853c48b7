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
)

func DetailsCommand() *cli.Command {
	return &cli.Command{
		Name:      "details",
		Usage:     "Show the description and columns of a catalog table",
		ArgsUsage: "<table-id>",
		Description: `Display the catalog path, year, source, keywords, description and columns of
one table. The id is matched ignoring case and accents.`,
		Action: withConfig(func(ctx context.Context, cmd *cli.Command, cfg *config.Config) error {
			if cmd.Args().Len() == 0 {
				return errors.New(errors.ErrTypeValidation, "table id is required")
			}

			snap, err := loadCatalog(ctx, cfg)
			if err != nil {
				return err
			}

			return runDetailsWithSnapshot(writerOf(cmd), snap, strings.Join(cmd.Args().Slice(), " "))
		}),
	}
}

func runDetailsWithSnapshot(w io.Writer, snap *catalog.Snapshot, input string) error {
	doc, ok := snap.Lookup(strings.TrimSpace(input))
	if !ok {
		doc, ok = snap.FindID(input)
	}

	if !ok {
		return errors.Newf(errors.ErrTypeNotFound, "table %q not found", input).
			WithSuggestion("Use 'catalog-chat search <query>' to find table ids")
	}

	fmt.Fprintln(w, catalog.FormatDetails(doc))

	return nil
}
