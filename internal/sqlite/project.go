package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/repository"
)

const projectColumns = `id, identity_key, name, display_name, status, stage, provenance,
	repo_slug, vercel_project_id, live_url, html_url, description, description_generated,
	category, language, last_commit_at, last_deployment_at, pinned, created_at, updated_at`

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	db  *DB
	now func() time.Time
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db, now: time.Now}
}

func scanProject(row rowScanner) (*project.Record, error) {
	var (
		rec            project.Record
		lastCommit     sql.NullTime
		lastDeployment sql.NullTime
	)
	err := row.Scan(
		&rec.ID,
		&rec.Key,
		&rec.Name,
		&rec.DisplayName,
		&rec.Status,
		&rec.Stage,
		&rec.Provenance,
		&rec.RepoSlug,
		&rec.VercelProjectID,
		&rec.LiveURL,
		&rec.HTMLURL,
		&rec.Description,
		&rec.DescriptionGenerated,
		&rec.Category,
		&rec.Language,
		&lastCommit,
		&lastDeployment,
		&rec.Pinned,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.LastCommitAt = timePtr(lastCommit)
	rec.LastDeploymentAt = timePtr(lastDeployment)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

// Get retrieves a record by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Record, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`

	rec, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return rec, nil
}

// GetByKey retrieves a record by its identity key
func (r *ProjectRepository) GetByKey(ctx context.Context, key string) (*project.Record, error) {
	return r.getByKey(ctx, r.db.DB, key)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *ProjectRepository) getByKey(ctx context.Context, q queryer, key string) (*project.Record, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE identity_key = ?`

	rec, err := scanProject(q.QueryRowContext(ctx, query, key))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project by key: %w", err)
	}
	return rec, nil
}

// FindCandidates returns records matching the repo slug (case-insensitive)
// or the exact name, oldest first.
func (r *ProjectRepository) FindCandidates(ctx context.Context, name, slug string) ([]project.Record, error) {
	query := `SELECT ` + projectColumns + ` FROM projects
		WHERE (? <> '' AND lower(repo_slug) = lower(?))
		   OR (? <> '' AND name = ?)
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, slug, slug, name, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}
	defer rows.Close()
	return collectProjects(rows)
}

// Upsert inserts in as a new record or merges it into the record holding
// its identity key, inside one transaction.
func (r *ProjectRepository) Upsert(ctx context.Context, in project.Incoming) (*project.Record, bool, error) {
	rec, inserted, err := r.upsert(ctx, in)
	if errors.Is(err, repository.ErrConflict) {
		// A concurrent writer claimed the key first; merge into its row.
		rec, inserted, err = r.upsert(ctx, in)
	}
	return rec, inserted, err
}

func (r *ProjectRepository) upsert(ctx context.Context, in project.Incoming) (*project.Record, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := r.getByKey(ctx, tx, in.Key)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	rec := project.Apply(existing, in, r.now().UTC())
	if existing == nil {
		err = insertProject(ctx, tx, rec)
	} else {
		err = updateProject(ctx, tx, rec)
	}
	if isUniqueViolation(err) {
		return nil, false, repository.ErrConflict
	}
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &rec, existing == nil, nil
}

func insertProject(ctx context.Context, tx *sql.Tx, rec project.Record) error {
	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query,
		rec.ID,
		rec.Key,
		rec.Name,
		rec.DisplayName,
		rec.Status,
		rec.Stage,
		rec.Provenance,
		rec.RepoSlug,
		rec.VercelProjectID,
		rec.LiveURL,
		rec.HTMLURL,
		rec.Description,
		rec.DescriptionGenerated,
		rec.Category,
		rec.Language,
		nullTime(rec.LastCommitAt),
		nullTime(rec.LastDeploymentAt),
		rec.Pinned,
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func updateProject(ctx context.Context, tx *sql.Tx, rec project.Record) error {
	query := `
		UPDATE projects SET
			name = ?, status = ?, repo_slug = ?, vercel_project_id = ?, live_url = ?,
			html_url = ?, description = ?, description_generated = ?, category = ?,
			language = ?, last_commit_at = ?, last_deployment_at = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := tx.ExecContext(ctx, query,
		rec.Name,
		rec.Status,
		rec.RepoSlug,
		rec.VercelProjectID,
		rec.LiveURL,
		rec.HTMLURL,
		rec.Description,
		rec.DescriptionGenerated,
		rec.Category,
		rec.Language,
		nullTime(rec.LastCommitAt),
		nullTime(rec.LastDeploymentAt),
		rec.UpdatedAt.UTC(),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return nil
}

// List returns records filtered by opts, pinned first then by name
func (r *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Record, error) {
	var (
		where []string
		args  []any
	)
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	if opts.Provenance != "" {
		where = append(where, "provenance = ?")
		args = append(args, opts.Provenance)
	}
	if opts.PinnedOnly {
		where = append(where, "pinned = 1")
	}

	query := `SELECT ` + projectColumns + ` FROM projects`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY pinned DESC, lower(CASE WHEN display_name <> '' THEN display_name ELSE name END) ASC, id ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()
	return collectProjects(rows)
}

// UpdateUser applies user-owned field changes
func (r *ProjectRepository) UpdateUser(ctx context.Context, id string, patch project.UserPatch) (*project.Record, error) {
	var (
		sets []string
		args []any
	)
	if patch.TogglePinned {
		sets = append(sets, "pinned = 1 - pinned")
	}
	if patch.DisplayName != nil {
		sets = append(sets, "display_name = ?")
		args = append(args, *patch.DisplayName)
	}
	if patch.Stage != nil {
		sets = append(sets, "stage = ?")
		args = append(args, *patch.Stage)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now().UTC(), id)

	query := `UPDATE projects SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}
	return r.Get(ctx, id)
}

// MarkMissing flips active hosted records under keyPrefix that are absent
// from seen to redundant.
func (r *ProjectRepository) MarkMissing(ctx context.Context, keyPrefix string, seen []string) (int64, error) {
	query := `
		UPDATE projects SET status = 'redundant', updated_at = ?
		WHERE provenance = 'hosted' AND status = 'active'
		  AND substr(identity_key, 1, ?) = ?
	`
	args := []any{r.now().UTC(), len(keyPrefix), keyPrefix}
	if len(seen) > 0 {
		query += " AND identity_key NOT IN (" + placeholders(len(seen)) + ")"
		for _, key := range seen {
			args = append(args, key)
		}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark missing projects: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func collectProjects(rows *sql.Rows) ([]project.Record, error) {
	var list []project.Record
	for rows.Next() {
		rec, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		list = append(list, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return list, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
