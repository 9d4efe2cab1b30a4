package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS attendance (
	id        TEXT PRIMARY KEY,
	face_id   TEXT NOT NULL,
	name      TEXT NOT NULL,
	status    TEXT NOT NULL DEFAULT 'Present',
	timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attendance_face_id ON attendance(face_id);
CREATE INDEX IF NOT EXISTS idx_attendance_timestamp ON attendance(timestamp);
`

// SQLite records accepted events in a local SQLite database, the
// durable equivalent of the CSV log.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the attendance database at
// the given path and applies the schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening attendance db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating attendance db: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Deliver inserts one event.
func (s *SQLite) Deliver(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance (id, face_id, name, status, timestamp) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.Key, ev.Name, ev.Status, ev.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: insert: %v", ErrUnreachable, err)
	}
	return nil
}

// Record is one stored attendance row, as read back for reports.
type Record struct {
	ID         string
	Key        string
	Name       string
	Status     string
	OccurredAt time.Time
}

// Records returns stored attendance rows, newest first. A zero since
// returns everything.
func (s *SQLite) Records(ctx context.Context, since time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, face_id, name, status, timestamp FROM attendance
		 WHERE timestamp >= ? ORDER BY timestamp DESC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("querying attendance: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Key, &r.Name, &r.Status, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("scanning attendance row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
