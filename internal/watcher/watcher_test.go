package watcher_test

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"focal/internal/config"
	"focal/internal/queue"
	"focal/internal/testsupport"
	"focal/internal/watcher"
)

func waitForJobs(t testing.TB, store *queue.Store, want int, timeout time.Duration) []*queue.Job {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		jobs, err := store.List(context.Background())
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(jobs) >= want {
			return jobs
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d jobs, found %d", want, len(jobs))
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func startWatcher(t testing.TB, cfg *config.Config, store *queue.Store) *watcher.Watcher {
	t.Helper()
	w := watcher.New(cfg, store, nil)
	if w == nil {
		t.Fatal("expected watcher")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherEnqueuesSettledFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	startWatcher(t, cfg, store)

	folder := filepath.Join(cfg.Paths.WatchDir, "wedding")
	testsupport.WriteJPEG(t, filepath.Join(folder, "a.jpg"), 2, 2, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	testsupport.WriteJPEG(t, filepath.Join(folder, "b.jpg"), 2, 2, color.NRGBA{R: 20, G: 20, B: 20, A: 255})

	jobs := waitForJobs(t, store, 1, 5*time.Second)
	if jobs[0].FolderPath != folder {
		t.Fatalf("unexpected folder path %q", jobs[0].FolderPath)
	}
	files, err := jobs[0].Files()
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files in snapshot, got %d", len(files))
	}
}

func TestWatcherEmitsOneJobPerFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	startWatcher(t, cfg, store)

	folder := filepath.Join(cfg.Paths.WatchDir, "burst")
	// Repeated writes inside the debounce window must collapse into one job.
	for i := 0; i < 5; i++ {
		name := filepath.Join(folder, "img"+string(rune('a'+i))+".jpg")
		testsupport.WriteJPEG(t, name, 2, 2, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
		time.Sleep(100 * time.Millisecond)
	}

	waitForJobs(t, store, 1, 5*time.Second)

	// Give the rescan a chance to misfire before asserting.
	time.Sleep(2 * time.Second)
	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected exactly 1 job, got %d", len(jobs))
	}
}

func TestWatcherIgnoresPreexistingFolders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	old := filepath.Join(cfg.Paths.WatchDir, "archive")
	testsupport.WriteJPEG(t, filepath.Join(old, "old.jpg"), 2, 2, color.NRGBA{R: 5, G: 5, B: 5, A: 255})

	startWatcher(t, cfg, store)

	fresh := filepath.Join(cfg.Paths.WatchDir, "fresh")
	testsupport.WriteJPEG(t, filepath.Join(fresh, "new.jpg"), 2, 2, color.NRGBA{R: 5, G: 5, B: 5, A: 255})

	jobs := waitForJobs(t, store, 1, 5*time.Second)
	for _, job := range jobs {
		if job.FolderPath == old {
			t.Fatalf("pre-existing folder was enqueued: %q", job.FolderPath)
		}
	}
}

func TestWatcherSkipsFoldersWithoutImages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	startWatcher(t, cfg, store)

	folder := filepath.Join(cfg.Paths.WatchDir, "paperwork")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, "invoice.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	time.Sleep(3 * time.Second)
	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs for imageless folder, got %d", len(jobs))
	}
}

func TestWatcherRescanCatchesMissedFolders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	startWatcher(t, cfg, store)

	// A folder renamed into place from outside the watch root may only be
	// seen by the rescan on some platforms.
	staging := filepath.Join(testsupport.BaseDir(cfg), "staging-session")
	testsupport.WriteJPEG(t, filepath.Join(staging, "shot.jpg"), 2, 2, color.NRGBA{R: 30, G: 30, B: 30, A: 255})
	target := filepath.Join(cfg.Paths.WatchDir, "session")
	if err := os.Rename(staging, target); err != nil {
		t.Fatalf("rename: %v", err)
	}

	jobs := waitForJobs(t, store, 1, 6*time.Second)
	if jobs[0].FolderPath != target {
		t.Fatalf("unexpected folder %q", jobs[0].FolderPath)
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	w := watcher.New(cfg, store, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	w.Stop()
	w.Stop()
}
