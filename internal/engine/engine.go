package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"cliplab/internal/config"
	"cliplab/internal/logging"
	"cliplab/internal/media"
	"cliplab/internal/services"
)

// State describes the engine lifecycle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateBusy          State = "busy"
	StateFailed        State = "failed"
)

// MaxClipSeconds bounds a single extraction. Longer requests are almost
// always a UI bug (swapped or unset range) and would hold the engine for the
// whole batch.
const MaxClipSeconds = 3600.0

const (
	inputName  = "source_input"
	outputName = "clip_output"
	lockName   = "engine.lock"
)

// runner abstracts the external codec subsystem so tests can substitute one.
type runner interface {
	Resolve() error
	Extract(ctx context.Context, inputPath, outputPath string, crop media.SourceCrop, tr media.TimeRange) error
}

// Engine owns exactly one external transcoder instance and mediates all
// access to it. The subsystem is expensive to initialize and writes fixed
// input/output names in its working storage, so invocations must never
// overlap; Busy is a hard error, not a queue.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger
	run    runner

	mu      sync.Mutex
	state   State
	loading chan struct{}
	workDir string
	lock    *flock.Flock
}

// Option customises Engine construction.
type Option func(*Engine)

// WithRunner substitutes the codec subsystem (used in tests).
func WithRunner(r runner) Option {
	return func(e *Engine) {
		e.run = r
	}
}

// New constructs an engine in the Uninitialized state. The underlying
// subsystem is not touched until EnsureReady.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "engine"),
		state:  StateUninitialized,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.run == nil {
		e.run = newFFmpegRunner(cfg, e.logger)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// EnsureReady initializes the subsystem on first use. It is idempotent:
// concurrent callers await a single in-flight load rather than starting a
// second one. A Failed engine stays failed until Shutdown.
func (e *Engine) EnsureReady(ctx context.Context) error {
	for {
		e.mu.Lock()
		switch e.state {
		case StateReady, StateBusy:
			e.mu.Unlock()
			return nil
		case StateFailed:
			e.mu.Unlock()
			return services.Wrap(services.ErrEngineInit, "engine", "ensure ready",
				"engine is in the failed state; call Shutdown before retrying", nil)
		case StateLoading:
			loading := e.loading
			e.mu.Unlock()
			select {
			case <-loading:
				// Re-check the post-load state.
			case <-ctx.Done():
				return services.Wrap(services.ErrEngineInit, "engine", "ensure ready", "wait for load", ctx.Err())
			}
		case StateUninitialized:
			loading := make(chan struct{})
			e.loading = loading
			e.state = StateLoading
			e.mu.Unlock()

			err := e.load(ctx)

			e.mu.Lock()
			if err != nil {
				e.state = StateFailed
			} else {
				e.state = StateReady
			}
			e.loading = nil
			close(loading)
			e.mu.Unlock()

			if err != nil {
				return services.Wrap(services.ErrEngineInit, "engine", "load", "", err)
			}
			e.logger.Info("engine ready", logging.String("work_dir", e.workDir))
			return nil
		default:
			e.mu.Unlock()
			return fmt.Errorf("engine in unknown state %q", e.state)
		}
	}
}

func (e *Engine) load(_ context.Context) error {
	if err := e.run.Resolve(); err != nil {
		return err
	}

	workDir := filepath.Join(e.cfg.Paths.StagingDir, "engine")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}

	lock := flock.New(filepath.Join(workDir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire working directory lock: %w", err)
	}
	if !ok {
		return errors.New("another engine instance owns the working directory")
	}

	e.workDir = workDir
	e.lock = lock
	return nil
}

// ExtractClip stages the source bytes, runs one extraction, and reads the
// produced clip. Working storage is cleared on every exit path so a failed
// job never leaves residue for the next one.
func (e *Engine) ExtractClip(ctx context.Context, source []byte, crop media.SourceCrop, tr media.TimeRange) (*media.Artifact, error) {
	e.mu.Lock()
	switch e.state {
	case StateReady:
		e.state = StateBusy
	case StateBusy:
		e.mu.Unlock()
		return nil, services.Wrap(services.ErrSubsystem, "engine", "extract",
			"an extraction is already in progress", nil)
	default:
		state := e.state
		e.mu.Unlock()
		return nil, services.Wrap(services.ErrSubsystem, "engine", "extract",
			fmt.Sprintf("engine is %s, call EnsureReady first", state), nil)
	}
	e.mu.Unlock()

	artifact, fault, err := e.extractLocked(ctx, source, crop, tr)

	e.mu.Lock()
	if fault {
		e.state = StateFailed
	} else {
		e.state = StateReady
	}
	e.mu.Unlock()

	return artifact, err
}

// extractLocked runs the load→write→execute→read→cleanup lifecycle. fault
// reports whether the engine itself became unusable.
func (e *Engine) extractLocked(ctx context.Context, source []byte, crop media.SourceCrop, tr media.TimeRange) (artifact *media.Artifact, fault bool, err error) {
	inputPath := filepath.Join(e.workDir, inputName)
	outputPath := filepath.Join(e.workDir, outputName+"."+e.cfg.Export.Container)

	// Working storage is cleared unconditionally, success or failure, so one
	// bad job cannot poison the next one sharing the fixed names.
	defer func() {
		for _, path := range []string{inputPath, outputPath} {
			if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				e.logger.Error("failed to clear working storage", logging.String("path", path), logging.Error(removeErr))
				fault = true
			}
		}
	}()

	if writeErr := os.WriteFile(inputPath, source, 0o644); writeErr != nil {
		// Working storage is broken; nothing else will succeed either.
		return nil, true, services.Wrap(services.ErrSubsystem, "engine", "stage input", "", writeErr)
	}

	duration := tr.Duration()
	if duration <= 0 || duration > MaxClipSeconds {
		return nil, false, services.Wrap(services.ErrInvalidDuration, "engine", "extract",
			fmt.Sprintf("duration %.3fs outside (0, %.0f]", duration, MaxClipSeconds), nil)
	}

	started := time.Now()
	if runErr := e.run.Extract(ctx, inputPath, outputPath, crop, tr); runErr != nil {
		return nil, false, services.Wrap(services.ErrSubsystem, "engine", "extract", "", runErr)
	}

	// ffmpeg can exit zero yet produce nothing on malformed filter arguments,
	// so existence and size are checked explicitly rather than trusted.
	info, statErr := os.Stat(outputPath)
	if errors.Is(statErr, os.ErrNotExist) {
		return nil, false, services.Wrap(services.ErrOutputMissing, "engine", "extract",
			"subsystem reported success but produced no output", nil)
	}
	if statErr != nil {
		return nil, true, services.Wrap(services.ErrSubsystem, "engine", "stat output", "", statErr)
	}
	if info.Size() == 0 {
		return nil, false, services.Wrap(services.ErrEmptyOutput, "engine", "extract",
			"subsystem produced a zero-byte output", nil)
	}

	payload, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		return nil, true, services.Wrap(services.ErrSubsystem, "engine", "read output", "", readErr)
	}

	e.logger.Debug("clip extracted",
		logging.Int("bytes", len(payload)),
		logging.Float64("duration_seconds", duration),
		logging.Duration("elapsed", time.Since(started)),
	)

	return &media.Artifact{
		Payload:  payload,
		MIMEType: "video/" + e.cfg.Export.Container,
	}, false, nil
}

// Shutdown releases the subsystem and working storage. It is valid from any
// state and subsequent calls are no-ops.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lock != nil {
		if err := e.lock.Unlock(); err != nil {
			e.logger.Warn("failed to release working directory lock", logging.Error(err))
		}
		e.lock = nil
	}
	if e.workDir != "" {
		for _, name := range []string{inputName, outputName + "." + e.cfg.Export.Container} {
			_ = os.Remove(filepath.Join(e.workDir, name))
		}
		e.workDir = ""
	}
	e.state = StateUninitialized
}
