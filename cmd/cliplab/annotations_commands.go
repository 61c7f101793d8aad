package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cliplab/internal/annotations"
	"cliplab/internal/fileutil"
)

var labelCaser = cases.Title(language.English)

func newAnnotationsCommand(ctx *commandContext) *cobra.Command {
	annCmd := &cobra.Command{
		Use:   "annotations",
		Short: "Manage the annotation catalog",
	}

	annCmd.AddCommand(newAnnotationsListCommand(ctx))
	annCmd.AddCommand(newAnnotationsImportCommand(ctx))
	annCmd.AddCommand(newAnnotationsExportCommand(ctx))
	annCmd.AddCommand(newAnnotationsRemoveCommand(ctx))
	annCmd.AddCommand(newAnnotationsClearCommand(ctx))

	return annCmd
}

func withStore(ctx *commandContext, fn func(*annotations.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := annotations.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newAnnotationsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog annotations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *annotations.Store) error {
				anns, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(anns) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
					return nil
				}

				rows := make([][]string, 0, len(anns))
				for _, ann := range anns {
					rows = append(rows, []string{
						shortID(ann.ID),
						labelCaser.String(ann.Label),
						ann.POSTag,
						yesNo(ann.SideView),
						formatClock(ann.Time.Start),
						formatClock(ann.Time.End),
						fmt.Sprintf("%dx%d@%d,%d", ann.Crop.Width, ann.Crop.Height, ann.Crop.X, ann.Crop.Y),
						ann.CreatedAt.Format("2006-01-02 15:04"),
					})
				}
				out := renderTable(
					[]string{"ID", "Label", "POS", "Side", "Start", "End", "Crop", "Created"},
					rows, 4, 5,
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func newAnnotationsImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import annotations from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer file.Close()

			anns, skipped, err := annotations.ReadCSV(file)
			if err != nil {
				return fmt.Errorf("parse import file: %w", err)
			}

			return withStore(ctx, func(store *annotations.Store) error {
				stored, err := store.AddAll(cmd.Context(), anns)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d annotation(s)\n", len(stored))
				if len(skipped) > 0 {
					rows := make([][]string, 0, len(skipped))
					for _, row := range skipped {
						rows = append(rows, []string{strconv.Itoa(row.Line), row.Reason})
					}
					fmt.Fprintf(out, "Skipped %d row(s):\n", len(skipped))
					fmt.Fprintln(out, renderTable([]string{"Line", "Reason"}, rows, 0))
				}
				return nil
			})
		},
	}
}

func newAnnotationsExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Export the catalog to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *annotations.Store) error {
				anns, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				var buf bytes.Buffer
				if err := annotations.WriteCSV(&buf, anns); err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(args[0], buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d annotation(s) to %s\n", len(anns), args[0])
				return nil
			})
		},
	}
}

func newAnnotationsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove one annotation by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *annotations.Store) error {
				removed, err := store.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("annotation %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed annotation %s\n", args[0])
				return nil
			})
		},
	}
}

func newAnnotationsClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every annotation from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *annotations.Store) error {
				count, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d annotation(s)\n", count)
				return nil
			})
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatClock renders seconds as m:ss.s for the listing table.
func formatClock(seconds float64) string {
	minutes := int(seconds) / 60
	rest := seconds - float64(minutes*60)
	return fmt.Sprintf("%d:%04.1f", minutes, rest)
}
