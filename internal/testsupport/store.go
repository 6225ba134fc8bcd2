package testsupport

import (
	"context"
	"testing"

	"readout/internal/config"
	"readout/internal/queue"
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

// NewTask enqueues a URL task for tests using the provided store.
func NewTask(t testing.TB, store *queue.Store, rawURL string, mode queue.Mode) *queue.Task {
	t.Helper()

	task, err := store.Enqueue(context.Background(), queue.URLOrigin(rawURL), mode, "http")
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return task
}
