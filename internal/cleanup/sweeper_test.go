package cleanup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"focal/internal/cleanup"
	"focal/internal/testsupport"
)

func writeAged(t testing.TB, path string, age time.Duration) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestSweepDeletesOnlyOldMatchingFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	target := filepath.Join(testsupport.BaseDir(cfg), "dropzone")
	cfg.Cleanup.Enabled = true
	cfg.Cleanup.Folders = []string{target}
	cfg.Cleanup.MaxAgeMinutes = 30
	cfg.Cleanup.IntervalMinutes = 30
	cfg.Cleanup.Extensions = []string{".jpg", "tif"}

	old := filepath.Join(target, "old.jpg")
	fresh := filepath.Join(target, "fresh.jpg")
	wrongExt := filepath.Join(target, "old.txt")
	writeAged(t, old, time.Hour)
	writeAged(t, fresh, time.Minute)
	writeAged(t, wrongExt, time.Hour)

	sweeper := cleanup.NewSweeper(cfg, nil)
	deleted := sweeper.Sweep(context.Background())
	if deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old.jpg removed")
	}
	for _, keep := range []string{fresh, wrongExt} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %q untouched: %v", keep, err)
		}
	}
}

func TestSweepPrunesEmptiedFolders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	target := filepath.Join(testsupport.BaseDir(cfg), "dropzone")
	cfg.Cleanup.Enabled = true
	cfg.Cleanup.Folders = []string{target}
	cfg.Cleanup.MaxAgeMinutes = 10

	nested := filepath.Join(target, "session", "processed")
	old := filepath.Join(nested, "shot.tif")
	writeAged(t, old, time.Hour)
	stamp := time.Now().Add(-time.Hour)
	for _, dir := range []string{nested, filepath.Dir(nested)} {
		if err := os.Chtimes(dir, stamp, stamp); err != nil {
			t.Fatalf("chtimes dir: %v", err)
		}
	}

	sweeper := cleanup.NewSweeper(cfg, nil)
	sweeper.Sweep(context.Background())

	if _, err := os.Stat(filepath.Join(target, "session")); !os.IsNotExist(err) {
		t.Fatal("expected emptied session folder removed")
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("cleanup root must survive: %v", err)
	}
}

func TestSweepHonorsEmptyExtensionList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	target := filepath.Join(testsupport.BaseDir(cfg), "dropzone")
	cfg.Cleanup.Enabled = true
	cfg.Cleanup.Folders = []string{target}
	cfg.Cleanup.MaxAgeMinutes = 10
	cfg.Cleanup.Extensions = nil

	old := filepath.Join(target, "anything.xyz")
	writeAged(t, old, time.Hour)

	sweeper := cleanup.NewSweeper(cfg, nil)
	if deleted := sweeper.Sweep(context.Background()); deleted != 1 {
		t.Fatalf("expected 1 deletion, got %d", deleted)
	}
}

func TestStartWhenDisabledIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Cleanup.Enabled = false

	sweeper := cleanup.NewSweeper(cfg, nil)
	if err := sweeper.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sweeper.Stop()
}
