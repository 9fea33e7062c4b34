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
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateCleanup(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if strings.TrimSpace(c.Paths.PresetPath) == "" {
		return errors.New("paths.preset_path must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case "tiff", "jpg":
	default:
		return fmt.Errorf("output.format must be tiff or jpg, got %q", c.Output.Format)
	}
	if c.Output.JPEGQuality < 1 || c.Output.JPEGQuality > 100 {
		return fmt.Errorf("output.jpeg_quality must be between 1 and 100, got %d", c.Output.JPEGQuality)
	}
	if c.Output.Folder == "" {
		return errors.New("output.folder must be set")
	}
	if strings.ContainsAny(c.Output.Folder, `/\`) {
		return fmt.Errorf("output.folder must be a bare directory name, got %q", c.Output.Folder)
	}
	if len(c.Output.StandardExtensions) == 0 {
		return errors.New("output.standard_extensions must not be empty")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	return ensurePositiveMap(map[string]int{
		"processing.debounce_seconds":    c.Processing.DebounceSeconds,
		"processing.max_concurrent_jobs": c.Processing.MaxConcurrentJobs,
	}, map[string]int{
		"processing.max_retries":           c.Processing.MaxRetries,
		"processing.retry_backoff_seconds": c.Processing.RetryBackoffSeconds,
	})
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return fmt.Errorf("workflow.heartbeat_timeout (%d) must exceed workflow.heartbeat_interval (%d)",
			c.Workflow.HeartbeatTimeout, c.Workflow.HeartbeatInterval)
	}
	return ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.heartbeat_interval":   c.Workflow.HeartbeatInterval,
		"workflow.heartbeat_timeout":    c.Workflow.HeartbeatTimeout,
		"workflow.rescan_interval":      c.Workflow.RescanInterval,
	}, nil)
}

func (c *Config) validateCleanup() error {
	if !c.Cleanup.Enabled {
		return nil
	}
	if len(c.Cleanup.Folders) == 0 {
		return errors.New("cleanup.folders must be set when cleanup.enabled is true")
	}
	return ensurePositiveMap(map[string]int{
		"cleanup.interval_minutes": c.Cleanup.IntervalMinutes,
		"cleanup.max_age_minutes":  c.Cleanup.MaxAgeMinutes,
	}, nil)
}

func ensurePositiveMap(positive map[string]int, nonNegative map[string]int) error {
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must not be negative, got %d", name, value)
		}
	}
	return nil
}
