package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"focal/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "focal")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.WatchDir != filepath.Join(tempHome, "Pictures", "incoming") {
		t.Fatalf("unexpected watch dir: %q", cfg.Paths.WatchDir)
	}
	if cfg.Output.Format != "tiff" {
		t.Fatalf("unexpected output format: %q", cfg.Output.Format)
	}
	if cfg.Cleanup.Enabled {
		t.Fatal("expected cleanup disabled by default")
	}
	if cfg.Processing.MaxConcurrentJobs != config.Default().Processing.MaxConcurrentJobs {
		t.Fatalf("unexpected concurrency bound: %d", cfg.Processing.MaxConcurrentJobs)
	}
	if cfg.Workflow.HeartbeatTimeout <= cfg.Workflow.HeartbeatInterval {
		t.Fatalf("heartbeat timeout %d must exceed interval %d", cfg.Workflow.HeartbeatTimeout, cfg.Workflow.HeartbeatInterval)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "focal.toml")

	type payload struct {
		Paths struct {
			WatchDir   string `toml:"watch_dir"`
			PresetPath string `toml:"preset_path"`
		} `toml:"paths"`
		Output struct {
			Format      string `toml:"format"`
			JPEGQuality int    `toml:"jpeg_quality"`
		} `toml:"output"`
		Processing struct {
			MaxConcurrentJobs int `toml:"max_concurrent_jobs"`
		} `toml:"processing"`
	}
	custom := payload{}
	custom.Paths.WatchDir = filepath.Join(tempDir, "incoming")
	custom.Paths.PresetPath = filepath.Join(tempDir, "preset.xmp")
	custom.Output.Format = "JPEG"
	custom.Output.JPEGQuality = 80
	custom.Processing.MaxConcurrentJobs = 4
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Output.Format != "jpg" {
		t.Fatalf("expected JPEG to normalize to jpg, got %q", cfg.Output.Format)
	}
	if !cfg.OutputIsJPEG() {
		t.Fatal("expected OutputIsJPEG to report true")
	}
	if cfg.OutputExtension() != ".jpg" {
		t.Fatalf("unexpected output extension: %q", cfg.OutputExtension())
	}
	if cfg.Output.JPEGQuality != 80 {
		t.Fatalf("expected jpeg quality 80, got %d", cfg.Output.JPEGQuality)
	}
	if cfg.Processing.MaxConcurrentJobs != 4 {
		t.Fatalf("expected concurrency 4, got %d", cfg.Processing.MaxConcurrentJobs)
	}
	if cfg.Paths.WatchDir != custom.Paths.WatchDir {
		t.Fatalf("unexpected watch dir: %q", cfg.Paths.WatchDir)
	}
}

func TestSupportedExtensionsRespectsRawToggle(t *testing.T) {
	cfg := config.Default()
	cfg.Output.RawProcessing = true
	set := cfg.SupportedExtensions()
	if _, ok := set[".dng"]; !ok {
		t.Fatal("expected .dng supported when raw processing enabled")
	}
	if _, ok := set[".jpg"]; !ok {
		t.Fatal("expected .jpg supported")
	}

	cfg.Output.RawProcessing = false
	set = cfg.SupportedExtensions()
	if _, ok := set[".dng"]; ok {
		t.Fatal("expected .dng excluded when raw processing disabled")
	}
	if !cfg.IsRawExtension(".DNG") {
		t.Fatal("expected IsRawExtension to be case-insensitive")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "preset_path") {
		t.Fatalf("sample config missing preset_path: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Output.Format != "tiff" {
		t.Fatalf("unexpected sample output format: %q", cfg.Output.Format)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "bmp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported output format")
	}

	cfg = config.Default()
	cfg.Output.JPEGQuality = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for jpeg quality out of range")
	}

	cfg = config.Default()
	cfg.Output.Folder = "nested/processed"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for output folder with separators")
	}

	cfg = config.Default()
	cfg.Processing.MaxConcurrentJobs = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive concurrency")
	}

	cfg = config.Default()
	cfg.Workflow.HeartbeatTimeout = cfg.Workflow.HeartbeatInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when timeout <= interval")
	}

	cfg = config.Default()
	cfg.Cleanup.Enabled = true
	cfg.Cleanup.Folders = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when cleanup enabled without folders")
	}
}
