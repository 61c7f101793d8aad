package testsupport

import (
	"path/filepath"
	"testing"

	"cliplab/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithRemote enables the remote sink with the provided endpoint and token.
func WithRemote(endpoint, token, folderURL string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Remote.Enabled = true
		cfg.Remote.Endpoint = endpoint
		cfg.Remote.Token = token
		cfg.Remote.FolderURL = folderURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
