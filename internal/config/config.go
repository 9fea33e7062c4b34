package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir   string `toml:"watch_dir"`
	PresetPath string `toml:"preset_path"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
}

// Output contains configuration for processed image output.
type Output struct {
	Format             string   `toml:"format"`
	JPEGQuality        int      `toml:"jpeg_quality"`
	Folder             string   `toml:"folder"`
	ColorProfile       string   `toml:"color_profile"`
	RawProcessing      bool     `toml:"raw_processing"`
	RawExtensions      []string `toml:"raw_extensions"`
	StandardExtensions []string `toml:"standard_extensions"`
}

// Processing contains configuration for job scheduling and retry behavior.
type Processing struct {
	DebounceSeconds     int  `toml:"debounce_seconds"`
	MaxConcurrentJobs   int  `toml:"max_concurrent_jobs"`
	RetryFailed         bool `toml:"retry_failed"`
	MaxRetries          int  `toml:"max_retries"`
	RetryBackoffSeconds int  `toml:"retry_backoff_seconds"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	RescanInterval     int `toml:"rescan_interval"`
}

// Cleanup contains configuration for the file-age sweeper.
type Cleanup struct {
	Enabled         bool     `toml:"enabled"`
	Folders         []string `toml:"folders"`
	IntervalMinutes int      `toml:"interval_minutes"`
	MaxAgeMinutes   int      `toml:"max_age_minutes"`
	Extensions      []string `toml:"extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for focal.
//
// Configuration sections by subsystem:
//   - Paths: watched directory, preset location, data and log directories
//   - Output: processed image format, quality, and color handling
//   - Processing: debounce, concurrency bound, and per-file retry policy
//   - Workflow: daemon polling intervals and heartbeat timing
//   - Cleanup: optional file-age sweeper for processed output
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Output     Output     `toml:"output"`
	Processing Processing `toml:"processing"`
	Workflow   Workflow   `toml:"workflow"`
	Cleanup    Cleanup    `toml:"cleanup"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/focal/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("focal.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// WatchDir is created on a best-effort basis so the daemon can start before
// the watched share is mounted.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.WatchDir) != "" {
		_ = os.MkdirAll(c.Paths.WatchDir, 0o755)
	}
	return nil
}

// OutputIsJPEG reports whether processed files are written as JPEG.
func (c *Config) OutputIsJPEG() bool {
	switch strings.ToLower(strings.TrimSpace(c.Output.Format)) {
	case "jpg", "jpeg":
		return true
	default:
		return false
	}
}

// OutputExtension returns the file extension for processed output.
func (c *Config) OutputExtension() string {
	if c.OutputIsJPEG() {
		return ".jpg"
	}
	return ".tif"
}

// SupportedExtensions returns the merged, lowercased set of extensions the
// processor accepts. RAW extensions are excluded when raw processing is off.
func (c *Config) SupportedExtensions() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Output.RawExtensions)+len(c.Output.StandardExtensions))
	for _, ext := range c.Output.StandardExtensions {
		set[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
	}
	if c.Output.RawProcessing {
		for _, ext := range c.Output.RawExtensions {
			set[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
		}
	}
	delete(set, "")
	return set
}

// IsRawExtension reports whether ext (with leading dot) is configured as RAW.
func (c *Config) IsRawExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimSpace(ext))
	for _, raw := range c.Output.RawExtensions {
		if strings.ToLower(strings.TrimSpace(raw)) == ext {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
