package upload

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"cliplab/internal/fileutil"
	"cliplab/internal/media"
	"cliplab/internal/services"
)

// DefaultSaveDelay spaces successive local saves out so slow external drives
// and file watchers are not hammered with back-to-back writes.
const DefaultSaveDelay = 150 * time.Millisecond

// LocalSink writes artifacts into a directory on the local filesystem.
type LocalSink struct {
	Dir   string
	Delay time.Duration

	saved int
}

// NewLocalSink builds a local sink targeting dir with the default save delay.
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{Dir: dir, Delay: DefaultSaveDelay}
}

func (s *LocalSink) Name() string { return "local" }

// Prepare creates the target directory.
func (s *LocalSink) Prepare(_ context.Context) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "upload", "prepare local sink", "", err)
	}
	return nil
}

// Save writes one artifact, pausing between successive saves.
func (s *LocalSink) Save(ctx context.Context, artifact *media.Artifact) error {
	if s.saved > 0 && s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	s.saved++

	path := filepath.Join(s.Dir, artifact.Filename)
	if err := fileutil.WriteFileVerified(path, artifact.Payload, 0o644); err != nil {
		return services.Wrap(services.ErrSubsystem, "upload", "save artifact", artifact.Filename, err)
	}
	return nil
}
