package testsupport

import (
	"context"
	"testing"

	"darkroom/internal/config"
	"darkroom/internal/journal"
	"darkroom/internal/outcomes"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.Daemon.JournalPath)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustRecord writes an outcome entry to the journal for tests.
func MustRecord(t testing.TB, store *journal.Store, entry outcomes.Entry, runID string) {
	t.Helper()

	if err := store.Record(context.Background(), entry, runID); err != nil {
		t.Fatalf("journal.Record: %v", err)
	}
}
