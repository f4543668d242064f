// Package history records heart-rate reports in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sweeney/pulse-monitor/internal/logic"
)

// Entry is one recorded report.
type Entry struct {
	ID        string
	Timestamp time.Time
	Status    logic.Status
	BPM       uint
}

// Store provides access to the history database.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at path and runs migrations.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS measurements (
		id TEXT PRIMARY KEY,
		recorded_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		bpm INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_measurements_recorded_at ON measurements(recorded_at);
	`)
	return err
}

// Record stores one report and returns its entry with a fresh ID.
func (s *Store) Record(ctx context.Context, ts time.Time, status logic.Status, bpm uint) (Entry, error) {
	e := Entry{
		ID:        uuid.New().String(),
		Timestamp: ts.UTC().Truncate(time.Millisecond),
		Status:    status,
		BPM:       bpm,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO measurements (id, recorded_at, status, bpm) VALUES (?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixMilli(), string(e.Status), int64(e.BPM))
	if err != nil {
		return Entry{}, fmt.Errorf("insert measurement: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recorded_at, status, bpm FROM measurements ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			ms     int64
			status string
			bpm    int64
		)
		if err := rows.Scan(&e.ID, &ms, &status, &bpm); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		e.Timestamp = time.UnixMilli(ms).UTC()
		e.Status = logic.Status(status)
		e.BPM = uint(bpm)
		out = append(out, e)
	}
	return out, rows.Err()
}
