package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
staging_dir = "` + filepath.Join(dir, "staging") + `"
output_dir = "` + filepath.Join(dir, "out") + `"

[export]
filename_prefix = "take"
container = ".mkv"
video_crf = 28
max_source_mib = 100
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Export.FilenamePrefix != "take" {
		t.Errorf("filename_prefix = %q", cfg.Export.FilenamePrefix)
	}
	if cfg.Export.Container != "mkv" {
		t.Errorf("container = %q, want leading dot stripped", cfg.Export.Container)
	}
	if cfg.MaxSourceBytes() != 100*1024*1024 {
		t.Errorf("MaxSourceBytes = %d", cfg.MaxSourceBytes())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for absent file")
	}
	if cfg.Export.VideoCRF != defaultVideoCRF {
		t.Errorf("video_crf = %d, want default %d", cfg.Export.VideoCRF, defaultVideoCRF)
	}
}

func TestValidateRemoteRequiresCredentials(t *testing.T) {
	cfg := Default()
	cfg.Remote.Enabled = true
	cfg.Remote.Endpoint = "https://store.example"
	cfg.Remote.FolderURL = "https://store.example/folders/abc"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "remote.token") {
		t.Fatalf("expected remote.token error, got %v", err)
	}
}

func TestValidateRejectsBadCRF(t *testing.T) {
	cfg := Default()
	cfg.Export.VideoCRF = 99
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range crf")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[export]") {
		t.Fatal("sample config missing [export] section")
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	got, err := ExpandPath("~/clips")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "clips") {
		t.Errorf("ExpandPath = %q", got)
	}
}
