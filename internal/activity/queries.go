package activity

import (
	"context"
	"fmt"
)

// Record inserts an activity entry
func (db *DB) Record(ctx context.Context, ev Event) (Event, error) {
	ev = prepare(ev)
	_, err := db.pool.Exec(ctx,
		`INSERT INTO activity (id, kind, file_id, title, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, string(ev.Kind), ev.FileID, ev.Title, ev.Detail, ev.CreatedAt,
	)
	if err != nil {
		return Event{}, fmt.Errorf("failed to record activity: %w", err)
	}
	return ev, nil
}

// Recent returns the newest entries first
func (db *DB) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, kind, file_id, title, detail, created_at
		 FROM activity ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var kind string
		if err := rows.Scan(&ev.ID, &kind, &ev.FileID, &ev.Title, &ev.Detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		ev.Kind = Kind(kind)
		events = append(events, ev)
	}
	return events, rows.Err()
}
