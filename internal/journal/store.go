package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"darkroom/internal/outcomes"
)

// Store manages outcome persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Outcome is one persisted pipeline result.
type Outcome struct {
	ID        int64
	RunID     string
	Path      string
	Result    outcomes.Result
	Reason    string
	CreatedAt time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the outcome journal at the given path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Record appends one outcome row. It satisfies the engine's recorder hook; a
// zero entry timestamp is filled with the current time.
func (s *Store) Record(ctx context.Context, entry outcomes.Entry, runID string) error {
	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO outcomes (run_id, path, result, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID,
		entry.Path,
		string(entry.Result),
		nullableString(entry.Reason),
		timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Recent returns persisted outcomes newest-first. A non-positive limit falls
// back to 20 rows.
func (s *Store) Recent(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT id, run_id, path, result, reason, created_at FROM outcomes ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var records []Outcome
	for rows.Next() {
		record, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Stats returns a count of persisted outcomes grouped by result.
func (s *Store) Stats(ctx context.Context) (map[outcomes.Result]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT result, COUNT(1) FROM outcomes GROUP BY result`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[outcomes.Result]int)
	for rows.Next() {
		var result string
		var count int
		if err := rows.Scan(&result, &count); err != nil {
			return nil, err
		}
		stats[outcomes.Result(result)] = count
	}
	return stats, rows.Err()
}

// Purge deletes outcomes recorded more than olderThan ago and reports how
// many rows were removed.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM outcomes WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("purge outcomes: %w", err)
	}
	return res.RowsAffected()
}

func scanOutcome(scanner interface{ Scan(dest ...any) error }) (Outcome, error) {
	var (
		id         int64
		runID      string
		path       string
		result     string
		reason     sql.NullString
		createdRaw sql.NullString
	)

	if err := scanner.Scan(&id, &runID, &path, &result, &reason, &createdRaw); err != nil {
		return Outcome{}, err
	}

	record := Outcome{
		ID:     id,
		RunID:  runID,
		Path:   path,
		Result: outcomes.Result(result),
		Reason: reason.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	return record, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
