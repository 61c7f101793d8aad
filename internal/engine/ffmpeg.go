package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"cliplab/internal/config"
	"cliplab/internal/logging"
	"cliplab/internal/media"
)

// ffmpegRunner drives the ffmpeg binary for clip extraction.
type ffmpegRunner struct {
	cfg    *config.Config
	logger *slog.Logger
	binary string
}

func newFFmpegRunner(cfg *config.Config, logger *slog.Logger) *ffmpegRunner {
	return &ffmpegRunner{cfg: cfg, logger: logger}
}

// Resolve locates the ffmpeg binary on PATH. Called once during engine load.
func (r *ffmpegRunner) Resolve() error {
	name := r.cfg.FFmpegBinary()
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("binary %q not found: %w", name, err)
	}
	r.binary = path
	return nil
}

func (r *ffmpegRunner) Extract(ctx context.Context, inputPath, outputPath string, crop media.SourceCrop, tr media.TimeRange) error {
	args := extractArgs(inputPath, outputPath, crop, tr, r.cfg.Export.VideoPreset, r.cfg.Export.VideoCRF)

	r.logger.Debug("invoking ffmpeg",
		logging.String("binary", r.binary),
		logging.String("args", strings.Join(args, " ")),
	)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, tailLines(stderr.String(), 5))
	}
	return nil
}

// extractArgs builds the fixed extraction profile: seek and trim, crop in
// source space, fast lossy video re-encode, passthrough-grade AAC audio, and
// a streaming-friendly container with timestamps normalized to zero so the
// seek cannot leave negative-timestamp artifacts.
func extractArgs(inputPath, outputPath string, crop media.SourceCrop, tr media.TimeRange, preset string, crf int) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-nostdin",
		"-ss", formatSeconds(tr.Start),
		"-t", formatSeconds(tr.Duration()),
		"-i", inputPath,
		"-vf", crop.FilterValue(),
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(crf),
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-avoid_negative_ts", "make_zero",
		outputPath,
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, " "))
}
