package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rpggio/appcatalog/internal/domain/classify"
	"github.com/rpggio/appcatalog/internal/repository"
)

// SnapshotRepository implements project.SnapshotRepository for SQLite
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Replace stores snap as the whole snapshot of projectID
func (r *SnapshotRepository) Replace(ctx context.Context, projectID string, snap classify.Snapshot) error {
	tags := snap.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
		INSERT INTO snapshots (project_id, frontend, backend, database_label, auth, tags, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			frontend = excluded.frontend,
			backend = excluded.backend,
			database_label = excluded.database_label,
			auth = excluded.auth,
			tags = excluded.tags,
			scanned_at = excluded.scanned_at
	`
	_, err = r.db.ExecContext(ctx, query,
		projectID,
		snap.Frontend,
		snap.Backend,
		snap.Database,
		snap.Auth,
		string(encoded),
		snap.ScannedAt.UTC(),
	)
	if isForeignKeyViolation(err) {
		return repository.ErrForeignKeyViolation
	}
	if err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func scanSnapshot(row rowScanner) (string, *classify.Snapshot, error) {
	var (
		projectID string
		snap      classify.Snapshot
		tags      string
	)
	if err := row.Scan(
		&projectID,
		&snap.Frontend,
		&snap.Backend,
		&snap.Database,
		&snap.Auth,
		&tags,
		&snap.ScannedAt,
	); err != nil {
		return "", nil, err
	}
	if err := json.Unmarshal([]byte(tags), &snap.Tags); err != nil {
		return "", nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	snap.ScannedAt = snap.ScannedAt.UTC()
	return projectID, &snap, nil
}

// Get retrieves the snapshot of projectID
func (r *SnapshotRepository) Get(ctx context.Context, projectID string) (*classify.Snapshot, error) {
	query := `
		SELECT project_id, frontend, backend, database_label, auth, tags, scanned_at
		FROM snapshots WHERE project_id = ?
	`
	_, snap, err := scanSnapshot(r.db.QueryRowContext(ctx, query, projectID))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snap, nil
}

// List returns every snapshot keyed by project ID
func (r *SnapshotRepository) List(ctx context.Context) (map[string]classify.Snapshot, error) {
	query := `
		SELECT project_id, frontend, backend, database_label, auth, tags, scanned_at
		FROM snapshots
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snaps := make(map[string]classify.Snapshot)
	for rows.Next() {
		id, snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps[id] = *snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return snaps, nil
}
