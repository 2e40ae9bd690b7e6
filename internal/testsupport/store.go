package testsupport

import (
	"context"
	"testing"

	"fluently/internal/config"
	"fluently/internal/recording"
)

// MustOpenStore opens a recording.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *recording.Store {
	t.Helper()

	store, err := recording.Open(cfg)
	if err != nil {
		t.Fatalf("recording.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRecording creates a pending recording for tests using the provided store.
func NewRecording(t testing.TB, store *recording.Store, ownerID int64, storageKey string, durationSeconds float64) *recording.Recording {
	t.Helper()

	rec, err := store.Create(context.Background(), ownerID, storageKey, durationSeconds, "")
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return rec
}
