package daemon_test

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"focal/internal/daemon"
	"focal/internal/queue"
	"focal/internal/testsupport"
)

const presetXMP = `<?xml version="1.0" encoding="UTF-8"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/">
 <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
  <rdf:Description rdf:about=""
    xmlns:crs="http://ns.adobe.com/camera-raw-settings/1.0/"
    crs:Exposure="+1.00"/>
 </rdf:RDF>
</x:xmpmeta>`

func TestDaemonLifecycleAndSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.Paths.PresetPath, []byte(presetXMP), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	if !d.Running() {
		t.Fatal("expected daemon running")
	}

	second, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("expected daemon stopped")
	}
}

func TestDaemonResetsStuckJobsOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.Paths.PresetPath, []byte(presetXMP), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	folder := filepath.Join(testsupport.BaseDir(cfg), "stranded")
	source := filepath.Join(folder, "shot.jpg")
	testsupport.WriteJPEG(t, source, 4, 4, color.NRGBA{R: 64, G: 64, B: 64, A: 255})
	job := testsupport.NewFolderJob(t, store, folder, []string{source})
	if claimed, err := store.Claim(context.Background(), job.ID); err != nil || !claimed {
		t.Fatalf("claim setup failed: %v", err)
	}

	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	deadline := time.Now().Add(15 * time.Second)
	for {
		current, err := store.GetByID(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if current.Status == queue.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stranded job never completed, status %s (%s)", current.Status, current.ErrorMessage)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func TestDaemonStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.Paths.PresetPath, []byte(presetXMP), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer d.Stop()

	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("expected running status")
	}
	if !status.Stage.Ready {
		t.Fatalf("expected ready stage: %s", status.Stage)
	}
	if status.QueueDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("expected populated paths: %#v", status)
	}
}
