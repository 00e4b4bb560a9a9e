package testsupport

import (
	"testing"

	"soundscape/internal/config"
	"soundscape/internal/jobs"
	"soundscape/internal/logging"
)

// MustOpenStore opens a jobs.SnapshotStore for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.SnapshotStore {
	t.Helper()

	store, err := jobs.OpenStore(cfg.SnapshotDBPath())
	if err != nil {
		t.Fatalf("jobs.OpenStore: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenRegistry opens a recovered jobs.Registry backed by a fresh store.
// Closing the registry closes the store.
func MustOpenRegistry(t testing.TB, cfg *config.Config) *jobs.Registry {
	t.Helper()

	store, err := jobs.OpenStore(cfg.SnapshotDBPath())
	if err != nil {
		t.Fatalf("jobs.OpenStore: %v", err)
	}
	registry, err := jobs.Open(store, logging.NewNop())
	if err != nil {
		_ = store.Close()
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = registry.Close()
	})
	return registry
}
