package project

import (
	"context"

	"github.com/rpggio/appcatalog/internal/domain/classify"
)

// Repository provides persistence operations for catalog records.
type Repository interface {
	Get(ctx context.Context, id string) (*Record, error)
	GetByKey(ctx context.Context, key string) (*Record, error)
	// FindCandidates returns records whose repo slug equals slug or whose
	// name equals name, oldest first.
	FindCandidates(ctx context.Context, name, slug string) ([]Record, error)
	// Upsert atomically inserts or merges in by its identity key.
	Upsert(ctx context.Context, in Incoming) (*Record, bool, error)
	List(ctx context.Context, opts ListOptions) ([]Record, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (*Record, error)
	// MarkMissing flips active hosted records under keyPrefix that are not in
	// seen to redundant.
	MarkMissing(ctx context.Context, keyPrefix string, seen []string) (int64, error)
}

// SnapshotRepository stores one classification snapshot per record.
type SnapshotRepository interface {
	Replace(ctx context.Context, projectID string, snap classify.Snapshot) error
	Get(ctx context.Context, projectID string) (*classify.Snapshot, error)
	List(ctx context.Context) (map[string]classify.Snapshot, error)
}
