package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/repository"
)

// ActivityRepository implements activity.Repository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func encodeMetadata(meta map[string]string) (string, error) {
	if meta == nil {
		meta = map[string]string{}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}

// AppendIfAbsent stores ev unless its ID already exists
func (r *ActivityRepository) AppendIfAbsent(ctx context.Context, ev activity.Event) (bool, error) {
	meta, err := encodeMetadata(ev.Metadata)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO activity_events (id, project_id, type, occurred_at, title, url, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		ev.ID, ev.ProjectID, ev.Type, ev.OccurredAt.UTC(), ev.Title, ev.URL, meta)
	if isForeignKeyViolation(err) {
		return false, repository.ErrForeignKeyViolation
	}
	if err != nil {
		return false, fmt.Errorf("failed to append event: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// Upsert stores ev, replacing the stored event with the same ID
func (r *ActivityRepository) Upsert(ctx context.Context, ev activity.Event) (bool, error) {
	meta, err := encodeMetadata(ev.Metadata)
	if err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_events WHERE id = ?`, ev.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check event: %w", err)
	}

	query := `
		INSERT INTO activity_events (id, project_id, type, occurred_at, title, url, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			occurred_at = excluded.occurred_at,
			title = excluded.title,
			url = excluded.url,
			metadata = excluded.metadata
	`
	_, err = tx.ExecContext(ctx, query,
		ev.ID, ev.ProjectID, ev.Type, ev.OccurredAt.UTC(), ev.Title, ev.URL, meta)
	if isForeignKeyViolation(err) {
		return false, repository.ErrForeignKeyViolation
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return exists == 0, nil
}

// List returns events matching opts, newest first
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Event, error) {
	query := `
		SELECT id, project_id, type, occurred_at, title, url, metadata
		FROM activity_events
	`

	var (
		conditions []string
		args       []any
	)
	if opts.ProjectID != "" {
		conditions = append(conditions, "project_id = ?")
		args = append(args, opts.ProjectID)
	}
	if opts.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, opts.Type)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, opts.Since.UTC())
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var events []activity.Event
	for rows.Next() {
		var (
			ev   activity.Event
			meta string
		)
		if err := rows.Scan(&ev.ID, &ev.ProjectID, &ev.Type, &ev.OccurredAt, &ev.Title, &ev.URL, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &ev.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return events, nil
}
