package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.FilenamePrefix == "" {
		return errors.New("export.filename_prefix must be set")
	}
	if c.Export.Container == "" {
		return errors.New("export.container must be set")
	}
	if c.Export.VideoCRF < 0 || c.Export.VideoCRF > 51 {
		return fmt.Errorf("export.video_crf must be between 0 and 51, got %d", c.Export.VideoCRF)
	}
	if c.Export.MaxSourceMiB <= 0 {
		return errors.New("export.max_source_mib must be positive")
	}
	return nil
}

func (c *Config) validateRemote() error {
	if !c.Remote.Enabled {
		return nil
	}
	if c.Remote.Endpoint == "" {
		return errors.New("remote.endpoint must be set when remote.enabled is true")
	}
	if c.Remote.Token == "" {
		return errors.New("remote.token must be set when remote.enabled is true")
	}
	if c.Remote.FolderURL == "" {
		return errors.New("remote.folder_url must be set when remote.enabled is true")
	}
	if c.Remote.RequestTimeout <= 0 {
		return errors.New("remote.request_timeout must be positive")
	}
	return nil
}
