package config

const (
	defaultWatchDir            = "~/Pictures/incoming"
	defaultPresetPath          = "~/.config/focal/preset.xmp"
	defaultDataDir             = "~/.local/share/focal"
	defaultLogDir              = "~/.local/share/focal/logs"
	defaultOutputFormat        = "tiff"
	defaultJPEGQuality         = 95
	defaultOutputFolder        = "processed"
	defaultColorProfile        = "sRGB"
	defaultDebounceSeconds     = 2
	defaultMaxConcurrentJobs   = 2
	defaultMaxRetries          = 3
	defaultRetryBackoffSeconds = 1
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 10
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultRescanInterval      = 3
	defaultCleanupInterval     = 30
	defaultCleanupMaxAge       = 120
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WatchDir:   defaultWatchDir,
			PresetPath: defaultPresetPath,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		Output: Output{
			Format:             defaultOutputFormat,
			JPEGQuality:        defaultJPEGQuality,
			Folder:             defaultOutputFolder,
			ColorProfile:       defaultColorProfile,
			RawProcessing:      true,
			RawExtensions:      []string{".dng", ".raw", ".pgm"},
			StandardExtensions: []string{".jpg", ".jpeg", ".tif", ".tiff", ".png"},
		},
		Processing: Processing{
			DebounceSeconds:     defaultDebounceSeconds,
			MaxConcurrentJobs:   defaultMaxConcurrentJobs,
			RetryFailed:         true,
			MaxRetries:          defaultMaxRetries,
			RetryBackoffSeconds: defaultRetryBackoffSeconds,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			RescanInterval:     defaultRescanInterval,
		},
		Cleanup: Cleanup{
			IntervalMinutes: defaultCleanupInterval,
			MaxAgeMinutes:   defaultCleanupMaxAge,
			Extensions:      []string{".tif", ".tiff", ".jpg", ".jpeg"},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
