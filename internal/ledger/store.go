package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Event is one journal row.
type Event struct {
	ID     int64
	Time   time.Time
	Worker string
	Name   string
	Path   string
	Detail string
}

// Store is the journal database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
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

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append inserts ev and returns its id. A zero time is replaced by now.
func (s *Store) Append(ctx context.Context, ev Event) (int64, error) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO artifact_events (ts, worker, event, path, detail) VALUES (?, ?, ?, ?, ?)`,
		ev.Time.UTC().Format(time.RFC3339Nano),
		ev.Worker,
		ev.Name,
		nullableString(ev.Path),
		nullableString(ev.Detail),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, worker, event, path, detail FROM artifact_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

// ForPath returns every event recorded for path, oldest first.
func (s *Store) ForPath(ctx context.Context, path string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, worker, event, path, detail FROM artifact_events WHERE path = ? ORDER BY id`, path)
	if err != nil {
		return nil, fmt.Errorf("query events for path: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	defer rows.Close()
	var events []Event
	for rows.Next() {
		var (
			ev     Event
			ts     string
			path   sql.NullString
			detail sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ts, &ev.Worker, &ev.Name, &path, &detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse event time %q: %w", ts, err)
		}
		ev.Time = parsed.Local()
		ev.Path = path.String
		ev.Detail = detail.String
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
