package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cliplab/internal/annotations"
	"cliplab/internal/engine"
	"cliplab/internal/export"
	"cliplab/internal/media"
	"cliplab/internal/upload"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		videoFlag  string
		canvasFlag string
		csvFlag    string
	)

	cmd := &cobra.Command{
		Use:   "export <video-file>",
		Short: "Export every annotation as an independent clip",
		Long: "Runs the batch pipeline over the annotation catalog (or an explicit CSV " +
			"file): each annotation is mapped into source coordinates, extracted as a " +
			"cropped and trimmed clip, and saved into the output directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			video, err := parseResolution(videoFlag)
			if err != nil {
				return fmt.Errorf("--video: %w", err)
			}
			canvas := video
			if canvasFlag != "" {
				if canvas, err = parseResolution(canvasFlag); err != nil {
					return fmt.Errorf("--canvas: %w", err)
				}
			}

			anns, err := loadAnnotations(ctx, cmd, csvFlag)
			if err != nil {
				return err
			}
			if len(anns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to export: the catalog is empty")
				return nil
			}

			source, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read source video: %w", err)
			}

			logger := ctx.logger()
			eng := engine.New(cfg, logger)
			defer eng.Shutdown()

			out := cmd.OutOrStdout()
			total := len(anns)
			sink := export.ProgressFunc(func(p export.Progress) {
				if p.Index == export.LoadingIndex {
					fmt.Fprintln(out, "Initializing transcode engine...")
					return
				}
				fmt.Fprintf(out, "[%3.0f%%] clip %d/%d\n", p.Percent, p.Index+1, total)
			})

			runner := export.NewRunner(cfg, logger, eng, export.WithProgressSink(sink))
			results, runErr := runner.Run(cmd.Context(), anns, canvas, video, source)

			if len(results) > 0 {
				artifacts := make([]*media.Artifact, 0, len(results))
				for _, res := range results {
					artifacts = append(artifacts, res.Artifact)
				}
				stage := upload.NewStage(logger)
				report, err := stage.Deliver(cmd.Context(), artifacts, upload.NewLocalSink(cfg.Paths.OutputDir))
				if err != nil {
					return err
				}
				printDeliveryReport(out, report)
			}

			if runErr != nil {
				var batchErr *export.BatchError
				if errors.As(runErr, &batchErr) && len(results) > 0 {
					fmt.Fprintf(out, "Batch stopped after %d of %d clip(s); completed clips were kept\n",
						len(results), total)
				}
				return runErr
			}
			fmt.Fprintf(out, "Exported %d clip(s) to %s\n", total, cfg.Paths.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoFlag, "video", "", "Source video resolution as WxH (required)")
	cmd.Flags().StringVar(&canvasFlag, "canvas", "", "Display canvas resolution as WxH (defaults to --video)")
	cmd.Flags().StringVar(&csvFlag, "csv", "", "Read annotations from a CSV file instead of the catalog")
	_ = cmd.MarkFlagRequired("video")

	return cmd
}

func loadAnnotations(ctx *commandContext, cmd *cobra.Command, csvPath string) ([]annotations.Annotation, error) {
	if csvPath != "" {
		file, err := os.Open(csvPath)
		if err != nil {
			return nil, fmt.Errorf("open annotations file: %w", err)
		}
		defer file.Close()

		anns, skipped, err := annotations.ReadCSV(file)
		if err != nil {
			return nil, err
		}
		for _, row := range skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping line %d: %s\n", row.Line, row.Reason)
		}
		return anns, nil
	}

	var anns []annotations.Annotation
	err := withStore(ctx, func(store *annotations.Store) error {
		var listErr error
		anns, listErr = store.List(cmd.Context())
		return listErr
	})
	return anns, err
}

func parseResolution(value string) (media.Resolution, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(value)), "x", 2)
	if len(parts) != 2 {
		return media.Resolution{}, fmt.Errorf("%q is not a WxH resolution", value)
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return media.Resolution{}, fmt.Errorf("width %q is not an integer", parts[0])
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return media.Resolution{}, fmt.Errorf("height %q is not an integer", parts[1])
	}
	if width <= 0 || height <= 0 {
		return media.Resolution{}, fmt.Errorf("resolution %q must be positive", value)
	}
	return media.Resolution{Width: width, Height: height}, nil
}
