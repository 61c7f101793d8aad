package main

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cliplab/internal/media"
	"cliplab/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	uploadCmd := &cobra.Command{
		Use:   "upload",
		Short: "Deliver exported clips to the remote store",
	}

	uploadCmd.AddCommand(newUploadRunCommand(ctx))
	uploadCmd.AddCommand(newUploadCheckCommand(ctx))

	return uploadCmd
}

func newUploadRunCommand(ctx *commandContext) *cobra.Command {
	var (
		remoteFlag bool
		dirFlag    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Upload clips from the output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !remoteFlag && !cfg.Remote.Enabled {
				return fmt.Errorf("remote delivery is not configured; enable [remote] in the config or pass --remote")
			}

			dir := dirFlag
			if dir == "" {
				dir = cfg.Paths.OutputDir
			}
			artifacts, err := loadArtifacts(dir)
			if err != nil {
				return err
			}
			if len(artifacts) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No clips found in %s\n", dir)
				return nil
			}

			logger := ctx.logger()
			stage := upload.NewStage(logger)
			report, err := stage.Deliver(cmd.Context(), artifacts, upload.NewRemoteSink(cfg, logger))
			if err != nil {
				return err
			}

			printDeliveryReport(cmd.OutOrStdout(), report)
			if report.Failed() > 0 {
				return fmt.Errorf("%d of %d clip(s) failed to upload", report.Failed(), len(report.Items))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remoteFlag, "remote", false, "Upload even when [remote] is disabled in the config")
	cmd.Flags().StringVar(&dirFlag, "dir", "", "Directory to upload clips from (defaults to the output directory)")

	return cmd
}

func newUploadCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify remote store access with the configured token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sink := upload.NewRemoteSink(cfg, ctx.logger())
			if err := sink.CheckAccess(cmd.Context()); err != nil {
				return err
			}

			folderID, err := upload.FolderIDFromURL(cfg.Remote.FolderURL)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Remote store access confirmed")
			fmt.Fprintf(out, "Target folder: %s\n", folderID)
			return nil
		},
	}
}

// loadArtifacts reads every regular file in dir into a deliverable artifact.
func loadArtifacts(dir string) ([]*media.Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read clip directory: %w", err)
	}

	var artifacts []*media.Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		payload, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read clip %s: %w", entry.Name(), err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(entry.Name()))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		artifacts = append(artifacts, &media.Artifact{
			Filename: entry.Name(),
			Payload:  payload,
			MIMEType: mimeType,
		})
	}
	return artifacts, nil
}

func printDeliveryReport(out io.Writer, report upload.DeliveryReport) {
	rows := make([][]string, 0, len(report.Items))
	for _, item := range report.Items {
		status := "delivered"
		detail := ""
		if !item.Delivered() {
			status = "failed"
			detail = item.Err.Error()
		}
		rows = append(rows, []string{item.Filename, status, detail})
	}
	fmt.Fprintln(out, renderTable([]string{"Clip", "Status", "Detail"}, rows))
	fmt.Fprintf(out, "%d delivered, %d failed via %s sink\n", report.Delivered(), report.Failed(), report.Sink)
}
