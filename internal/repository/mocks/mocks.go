package mocks

import (
	"context"

	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/classify"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*project.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) GetByKey(ctx context.Context, key string) (*project.Record, error) {
	args := m.Called(ctx, key)
	if rec, ok := args.Get(0).(*project.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) FindCandidates(ctx context.Context, name, slug string) ([]project.Record, error) {
	args := m.Called(ctx, name, slug)
	if list, ok := args.Get(0).([]project.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Upsert(ctx context.Context, in project.Incoming) (*project.Record, bool, error) {
	args := m.Called(ctx, in)
	if rec, ok := args.Get(0).(*project.Record); ok {
		return rec, args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Record, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]project.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) UpdateUser(ctx context.Context, id string, patch project.UserPatch) (*project.Record, error) {
	args := m.Called(ctx, id, patch)
	if rec, ok := args.Get(0).(*project.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) MarkMissing(ctx context.Context, keyPrefix string, seen []string) (int64, error) {
	args := m.Called(ctx, keyPrefix, seen)
	return args.Get(0).(int64), args.Error(1)
}

// SnapshotRepository is a mock for project.SnapshotRepository.
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) Replace(ctx context.Context, projectID string, snap classify.Snapshot) error {
	args := m.Called(ctx, projectID, snap)
	return args.Error(0)
}

func (m *SnapshotRepository) Get(ctx context.Context, projectID string) (*classify.Snapshot, error) {
	args := m.Called(ctx, projectID)
	if snap, ok := args.Get(0).(*classify.Snapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SnapshotRepository) List(ctx context.Context) (map[string]classify.Snapshot, error) {
	args := m.Called(ctx)
	if snaps, ok := args.Get(0).(map[string]classify.Snapshot); ok {
		return snaps, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) AppendIfAbsent(ctx context.Context, ev activity.Event) (bool, error) {
	args := m.Called(ctx, ev)
	return args.Bool(0), args.Error(1)
}

func (m *ActivityRepository) Upsert(ctx context.Context, ev activity.Event) (bool, error) {
	args := m.Called(ctx, ev)
	return args.Bool(0), args.Error(1)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListOptions) ([]activity.Event, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
