package journal_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"darkroom/internal/journal"
	"darkroom/internal/outcomes"
	"darkroom/internal/testsupport"
)

func TestRecordAndRecentRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	entries := []outcomes.Entry{
		{Path: "/photos/a.heic", Result: outcomes.ResultSuccess, Reason: "converted to a.jpg"},
		{Path: "/photos/b.heic", Result: outcomes.ResultSkip, Reason: "lock file"},
		{Path: "/photos/c.heic", Result: outcomes.ResultFailure, Reason: "permission denied"},
	}
	for _, entry := range entries {
		testsupport.MustRecord(t, store, entry, "run-1")
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != len(entries) {
		t.Fatalf("expected %d records, got %d", len(entries), len(records))
	}

	// Newest first: the last insert comes back first.
	if records[0].Path != "/photos/c.heic" || records[0].Result != outcomes.ResultFailure {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[2].Path != "/photos/a.heic" || records[2].Reason != "converted to a.jpg" {
		t.Fatalf("unexpected last record: %+v", records[2])
	}
	for _, record := range records {
		if record.RunID != "run-1" {
			t.Fatalf("unexpected run id: %+v", record)
		}
		if record.CreatedAt.IsZero() {
			t.Fatalf("expected created_at to round-trip: %+v", record)
		}
	}
}

func TestRecentHonoursLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	for i := 0; i < 5; i++ {
		testsupport.MustRecord(t, store, outcomes.Entry{
			Path:   "/photos/img.heic",
			Result: outcomes.ResultSuccess,
			Reason: "converted to img.jpg",
		}, "run-1")
	}

	records, err := store.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID <= records[1].ID {
		t.Fatalf("expected newest-first ordering, got ids %d, %d", records[0].ID, records[1].ID)
	}
}

func TestStatsCountsByResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	seed := []outcomes.Result{
		outcomes.ResultSuccess,
		outcomes.ResultSuccess,
		outcomes.ResultFailure,
		outcomes.ResultSkip,
	}
	for _, result := range seed {
		testsupport.MustRecord(t, store, outcomes.Entry{Path: "/photos/img.heic", Result: result}, "run-1")
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[outcomes.ResultSuccess] != 2 || stats[outcomes.ResultFailure] != 1 || stats[outcomes.ResultSkip] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestPurgeRemovesOldEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	ctx := context.Background()
	testsupport.MustRecord(t, store, outcomes.Entry{
		Timestamp: time.Now().Add(-72 * time.Hour),
		Path:      "/photos/old.heic",
		Result:    outcomes.ResultSuccess,
	}, "run-old")
	testsupport.MustRecord(t, store, outcomes.Entry{
		Path:   "/photos/new.heic",
		Result: outcomes.ResultSuccess,
	}, "run-new")

	removed, err := store.Purge(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 purged row, got %d", removed)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 || records[0].Path != "/photos/new.heic" {
		t.Fatalf("unexpected survivors: %+v", records)
	}
}

func TestHistorySurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := journal.Open(cfg.Daemon.JournalPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	testsupport.MustRecord(t, store, outcomes.Entry{
		Path:   "/photos/keep.heic",
		Result: outcomes.ResultSuccess,
		Reason: "converted to keep.jpg",
	}, "run-1")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := journal.Open(cfg.Daemon.JournalPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 || records[0].Path != "/photos/keep.heic" {
		t.Fatalf("expected history to survive reopen, got %+v", records)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := journal.Open(cfg.Daemon.JournalPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", cfg.Daemon.JournalPath)
	if err != nil {
		t.Fatalf("raw open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("tamper schema version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("raw close: %v", err)
	}

	if _, err := journal.Open(cfg.Daemon.JournalPath); !errors.Is(err, journal.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestCheckHealthReportsState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)

	testsupport.MustRecord(t, store, outcomes.Entry{
		Path:   "/photos/img.heic",
		Result: outcomes.ResultSuccess,
	}, "run-1")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.TotalOutcomes != 1 {
		t.Fatalf("expected 1 outcome, got %d", health.TotalOutcomes)
	}
	if !health.IntegrityCheck {
		t.Fatalf("expected integrity check to pass: %+v", health)
	}
	if health.DBPath != cfg.Daemon.JournalPath {
		t.Fatalf("unexpected db path: %q", health.DBPath)
	}
}
