package testsupport

import (
	"context"
	"testing"

	"focal/internal/config"
	"focal/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewFolderJob creates a new folder job for tests using the provided store.
func NewFolderJob(t testing.TB, store *queue.Store, folder string, files []string) *queue.Job {
	t.Helper()

	job, err := store.NewFolder(context.Background(), folder, files)
	if err != nil {
		t.Fatalf("store.NewFolder: %v", err)
	}
	return job
}
