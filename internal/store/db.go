// Package store persists named timelines and their events in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested timeline doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a timeline name is already taken
	ErrDuplicate = errors.New("duplicate")
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New opens the database at dataSourceName. ":memory:" gives a private
// in-memory database; the pool is limited to one connection so every
// query sees the same one.
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS timelines (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    timeline_id TEXT NOT NULL,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    year INTEGER NOT NULL,
    month INTEGER CHECK(month IS NULL OR (month BETWEEN 1 AND 12)),
    title TEXT NOT NULL,
    description TEXT,
    type TEXT NOT NULL DEFAULT '',
    highlight TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (timeline_id, id),
    FOREIGN KEY (timeline_id) REFERENCES timelines(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_events_timeline ON events(timeline_id, position);
`

// Migrate creates the schema if it is missing.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
