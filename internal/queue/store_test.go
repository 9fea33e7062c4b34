package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"focal/internal/queue"
	"focal/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.NewFolder(ctx, "/photos/session-1", []string{"/photos/session-1/a.jpg", "/photos/session-1/b.dng"})
	if err != nil {
		t.Fatalf("NewFolder failed: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.CorrelationID == "" {
		t.Fatal("expected correlation ID to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.FolderPath != "/photos/session-1" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
	files, err := fetched.Files()
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 2 || files[1] != "/photos/session-1/b.dng" {
		t.Fatalf("unexpected file snapshot: %v", files)
	}
}

func TestFindActiveByFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewFolderJob(t, store, "/photos/a", []string{"/photos/a/1.jpg"})

	found, err := store.FindActiveByFolder(ctx, "/photos/a")
	if err != nil {
		t.Fatalf("FindActiveByFolder failed: %v", err)
	}
	if found == nil || found.ID != first.ID {
		t.Fatalf("expected to find active job, got %#v", found)
	}

	first.Status = queue.StatusCompleted
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	found, err = store.FindActiveByFolder(ctx, "/photos/a")
	if err != nil {
		t.Fatalf("FindActiveByFolder failed: %v", err)
	}
	if found != nil {
		t.Fatalf("expected no active job after completion, got %#v", found)
	}
}

func TestClaimGuardsConcurrentWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewFolderJob(t, store, "/photos/claim", []string{"/photos/claim/1.jpg"})

	claimed, err := store.Claim(ctx, job.ID)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}

	claimed, err = store.Claim(ctx, job.ID)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim to fail")
	}

	updated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusProcessing {
		t.Fatalf("expected processing status, got %s", updated.Status)
	}
	if updated.LastHeartbeat == nil {
		t.Fatal("expected heartbeat set on claim")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewFolderJob(t, store, "/photos/stuck", []string{"/photos/stuck/1.jpg"})
	if _, err := store.Claim(ctx, job.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 job reset, got %d", count)
	}

	updated, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", updated.Status)
	}
	if updated.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.NewFolderJob(t, store, "/photos/stale", []string{"/photos/stale/1.jpg"})
	if _, err := store.Claim(ctx, stale.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	fresh := testsupport.NewFolderJob(t, store, "/photos/fresh", []string{"/photos/fresh/1.jpg"})
	if _, err := store.Claim(ctx, fresh.ID); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}

	// Age only the first job's heartbeat past the cutoff.
	old := time.Now().UTC().Add(-time.Hour)
	staleJob, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	staleJob.LastHeartbeat = &old
	if err := store.Update(ctx, staleJob); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 job reclaimed, got %d", count)
	}

	reclaimed, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reclaimed.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", reclaimed.Status)
	}
	untouched, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusProcessing {
		t.Fatalf("expected fresh job untouched, got %s", untouched.Status)
	}
}

func TestRetryFailedAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var failed []*queue.Job
	for i := 0; i < 3; i++ {
		job := testsupport.NewFolderJob(t, store, fmt.Sprintf("/photos/f%d", i), []string{fmt.Sprintf("/photos/f%d/1.jpg", i)})
		job.SetFailed("decode error")
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		failed = append(failed, job)
	}

	count, err := store.RetryFailed(ctx, failed[0].ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 job retried, got %d", count)
	}

	retried, err := store.GetByID(ctx, failed[0].ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", retried.Status)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("expected error cleared, got %q", retried.ErrorMessage)
	}

	count, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 jobs retried, got %d", count)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 jobs cleared, got %d", removed)
	}
}

func TestOutcomesRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewFolderJob(t, store, "/photos/out", []string{"/photos/out/1.jpg", "/photos/out/2.jpg"})

	outcomes := []queue.FileOutcome{
		{Path: "/photos/out/1.jpg", State: queue.FileStateDone, Attempts: 1, Output: "/photos/out/processed/1.tif"},
		{Path: "/photos/out/2.jpg", State: queue.FileStateFailed, Attempts: 3, Error: "decode error"},
	}
	if err := job.SetOutcomes(outcomes); err != nil {
		t.Fatalf("SetOutcomes failed: %v", err)
	}
	job.Status = queue.StatusCompleted
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	got, err := fetched.Outcomes()
	if err != nil {
		t.Fatalf("Outcomes failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(got))
	}
	if got[1].State != queue.FileStateFailed || got[1].Attempts != 3 {
		t.Fatalf("unexpected outcome: %#v", got[1])
	}
}

func TestHealthAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	pending := testsupport.NewFolderJob(t, store, "/photos/p", []string{"/photos/p/1.jpg"})
	_ = pending
	done := testsupport.NewFolderJob(t, store, "/photos/d", []string{"/photos/d/1.jpg"})
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed := testsupport.NewFolderJob(t, store, "/photos/x", []string{"/photos/x/1.jpg"})
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Completed != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}

	dbHealth, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !dbHealth.DatabaseExists || !dbHealth.TableExists || !dbHealth.IntegrityCheck {
		t.Fatalf("unexpected database health: %#v", dbHealth)
	}
	if len(dbHealth.MissingColumns) != 0 {
		t.Fatalf("unexpected missing columns: %v", dbHealth.MissingColumns)
	}
	if dbHealth.TotalJobs != 3 {
		t.Fatalf("expected 3 jobs counted, got %d", dbHealth.TotalJobs)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Processing "); !ok || status != queue.StatusProcessing {
		t.Fatalf("expected processing, got %q ok=%v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to fail")
	}
}
