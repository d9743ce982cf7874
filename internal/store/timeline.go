package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timelinelayout/internal/events"
)

// Timeline is a named, stored set of events.
type Timeline struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	EventCount int       `json:"event_count"`
}

// Repository reads and writes timelines.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateTimeline stores an empty timeline under a fresh id.
func (r *Repository) CreateTimeline(ctx context.Context, name string) (*Timeline, error) {
	now := time.Now().UTC()
	tl := &Timeline{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO timelines (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		tl.ID, tl.Name, tl.CreatedAt, tl.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: timeline %q already exists", ErrDuplicate, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create timeline: %w", err)
	}
	return tl, nil
}

const timelineColumns = `
	SELECT t.id, t.name, t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM events e WHERE e.timeline_id = t.id)
	FROM timelines t`

// GetTimeline retrieves a timeline by id.
func (r *Repository) GetTimeline(ctx context.Context, id string) (*Timeline, error) {
	row := r.db.QueryRowContext(ctx, timelineColumns+` WHERE t.id = ?`, id)
	return scanTimeline(row, id)
}

// GetTimelineByName retrieves a timeline by its unique name.
func (r *Repository) GetTimelineByName(ctx context.Context, name string) (*Timeline, error) {
	row := r.db.QueryRowContext(ctx, timelineColumns+` WHERE t.name = ?`, name)
	return scanTimeline(row, name)
}

func scanTimeline(row *sql.Row, key string) (*Timeline, error) {
	var tl Timeline
	err := row.Scan(&tl.ID, &tl.Name, &tl.CreatedAt, &tl.UpdatedAt, &tl.EventCount)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: timeline %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}
	return &tl, nil
}

// ListTimelines returns every timeline, most recently updated first.
func (r *Repository) ListTimelines(ctx context.Context) ([]Timeline, error) {
	rows, err := r.db.QueryContext(ctx, timelineColumns+` ORDER BY t.updated_at DESC, t.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list timelines: %w", err)
	}
	defer rows.Close()

	list := []Timeline{}
	for rows.Next() {
		var tl Timeline
		if err := rows.Scan(&tl.ID, &tl.Name, &tl.CreatedAt, &tl.UpdatedAt, &tl.EventCount); err != nil {
			return nil, fmt.Errorf("failed to scan timeline: %w", err)
		}
		list = append(list, tl)
	}
	return list, rows.Err()
}

// DeleteTimeline removes a timeline and its events.
func (r *Repository) DeleteTimeline(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timelines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete timeline: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: timeline %q", ErrNotFound, id)
	}
	return nil
}

// SaveEvents replaces the events of a timeline. The list is validated
// first and written in one transaction, so a failure leaves the previous
// events in place.
func (r *Repository) SaveEvents(ctx context.Context, timelineID string, list []events.Event) error {
	if err := events.ValidateAll(list); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE timelines SET updated_at = ? WHERE id = ?`, time.Now().UTC(), timelineID)
	if err != nil {
		return fmt.Errorf("failed to touch timeline: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: timeline %q", ErrNotFound, timelineID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE timeline_id = ?`, timelineID); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (timeline_id, id, position, year, month, title, description, type, highlight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range list {
		highlight, err := json.Marshal(nonNil(e.Highlight))
		if err != nil {
			return fmt.Errorf("failed to encode highlight for %q: %w", e.ID, err)
		}
		var month sql.NullInt64
		if e.Month != nil {
			month = sql.NullInt64{Int64: int64(*e.Month), Valid: true}
		}
		var description sql.NullString
		if e.Description != nil {
			description = sql.NullString{String: *e.Description, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, timelineID, e.ID, i, e.Year, month, e.Title, description, string(e.Type), string(highlight)); err != nil {
			return fmt.Errorf("failed to insert event %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}
	return nil
}

// ListEvents returns a timeline's events in the order they were saved.
func (r *Repository) ListEvents(ctx context.Context, timelineID string) ([]events.Event, error) {
	if _, err := r.GetTimeline(ctx, timelineID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, year, month, title, description, type, highlight
		FROM events
		WHERE timeline_id = ?
		ORDER BY position
	`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	list := []events.Event{}
	for rows.Next() {
		var (
			e           events.Event
			month       sql.NullInt64
			description sql.NullString
			typ         string
			highlight   string
		)
		if err := rows.Scan(&e.ID, &e.Year, &month, &e.Title, &description, &typ, &highlight); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if month.Valid {
			e.Month = events.Month(int(month.Int64))
		}
		if description.Valid {
			e.Description = events.Text(description.String)
		}
		e.Type = events.Type(typ)
		if err := json.Unmarshal([]byte(highlight), &e.Highlight); err != nil {
			return nil, fmt.Errorf("failed to decode highlight for %q: %w", e.ID, err)
		}
		if len(e.Highlight) == 0 {
			e.Highlight = nil
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
