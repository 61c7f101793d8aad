package config

const (
	defaultStagingDir     = "~/.local/share/cliplab/staging"
	defaultOutputDir      = "~/cliplab/clips"
	defaultLogDir         = "~/.local/share/cliplab/logs"
	defaultFilenamePrefix = "clip"
	defaultContainer      = "mp4"
	defaultVideoPreset    = "veryfast"
	defaultVideoCRF       = 23
	defaultMaxSourceMiB   = 500
	defaultRequestTimeout = 60
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Export: Export{
			FilenamePrefix: defaultFilenamePrefix,
			Container:      defaultContainer,
			VideoPreset:    defaultVideoPreset,
			VideoCRF:       defaultVideoCRF,
			MaxSourceMiB:   defaultMaxSourceMiB,
		},
		Remote: Remote{
			RequestTimeout: defaultRequestTimeout,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
