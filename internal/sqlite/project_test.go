package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/repository"
	"github.com/stretchr/testify/require"
)

func newProjectRepo(t *testing.T, now time.Time) *ProjectRepository {
	t.Helper()
	repo := NewProjectRepository(NewTestDB(t))
	repo.now = func() time.Time { return now }
	return repo
}

func TestProjectRepository_UpsertInsertsThenMerges(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newProjectRepo(t, t0)

	commit := t0.Add(-time.Hour)
	rec, inserted, err := repo.Upsert(ctx, project.Incoming{
		Key:          "github:acme/api",
		Name:         "api",
		Provenance:   project.ProvenanceHosted,
		Fields:       project.FieldRepoSlug | project.FieldHTMLURL | project.FieldLastCommit,
		RepoSlug:     "acme/api",
		HTMLURL:      "https://github.com/acme/api",
		LastCommitAt: &commit,
	})
	require.NoError(t, err)
	require.True(t, inserted)
	require.NotEmpty(t, rec.ID)
	require.Equal(t, project.StatusActive, rec.Status)
	require.Equal(t, project.StageInDev, rec.Stage)

	_, err = repo.UpdateUser(ctx, rec.ID, project.UserPatch{TogglePinned: true})
	require.NoError(t, err)

	repo.now = func() time.Time { return t0.Add(time.Hour) }
	merged, inserted, err := repo.Upsert(ctx, project.Incoming{
		Key:         "github:acme/api",
		Name:        "api-renamed",
		Fields:      project.FieldName | project.FieldDescription,
		Description: "Billing API",
	})
	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, rec.ID, merged.ID)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "api-renamed", got.Name)
	require.Equal(t, "Billing API", got.Description)
	require.Equal(t, "acme/api", got.RepoSlug)
	require.True(t, got.Pinned, "user-owned fields survive a merge")
	require.NotNil(t, got.LastCommitAt)
	require.True(t, commit.Equal(*got.LastCommitAt))
	require.True(t, t0.Equal(got.CreatedAt))
	require.True(t, t0.Add(time.Hour).Equal(got.UpdatedAt))
	require.Nil(t, got.LastDeploymentAt)
}

func TestProjectRepository_GetNotFound(t *testing.T) {
	repo := newProjectRepo(t, time.Now())
	ctx := context.Background()

	_, err := repo.Get(ctx, "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByKey(ctx, "github:nope/nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_FindCandidates(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newProjectRepo(t, t0)

	_, _, err := repo.Upsert(ctx, project.Incoming{Key: "/src/shop", Name: "shop", Provenance: project.ProvenanceScanner})
	require.NoError(t, err)

	repo.now = func() time.Time { return t0.Add(time.Minute) }
	_, _, err = repo.Upsert(ctx, project.Incoming{
		Key: "/src/store", Name: "store", Provenance: project.ProvenanceScanner,
		Fields: project.FieldRepoSlug, RepoSlug: "Acme/Shop",
	})
	require.NoError(t, err)

	_, _, err = repo.Upsert(ctx, project.Incoming{Key: "/src/other", Name: "other", Provenance: project.ProvenanceScanner})
	require.NoError(t, err)

	got, err := repo.FindCandidates(ctx, "shop", "acme/shop")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "/src/shop", got[0].Key, "oldest first")
	require.Equal(t, "/src/store", got[1].Key)

	got, err = repo.FindCandidates(ctx, "", "")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestProjectRepository_ListFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := newProjectRepo(t, time.Now())

	for _, in := range []project.Incoming{
		{Key: "/src/zeta", Name: "zeta", Provenance: project.ProvenanceScanner},
		{Key: "github:acme/alpha", Name: "alpha", Provenance: project.ProvenanceHosted},
		{Key: "github:acme/mid", Name: "Mid", Provenance: project.ProvenanceHosted},
	} {
		_, _, err := repo.Upsert(ctx, in)
		require.NoError(t, err)
	}
	zeta, err := repo.GetByKey(ctx, "/src/zeta")
	require.NoError(t, err)
	_, err = repo.UpdateUser(ctx, zeta.ID, project.UserPatch{TogglePinned: true})
	require.NoError(t, err)

	all, err := repo.List(ctx, project.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "zeta", all[0].Name, "pinned first")
	require.Equal(t, "alpha", all[1].Name)
	require.Equal(t, "Mid", all[2].Name)

	hosted, err := repo.List(ctx, project.ListOptions{Provenance: project.ProvenanceHosted, Limit: 1})
	require.NoError(t, err)
	require.Len(t, hosted, 1)
	require.Equal(t, "alpha", hosted[0].Name)

	pinned, err := repo.List(ctx, project.ListOptions{PinnedOnly: true})
	require.NoError(t, err)
	require.Len(t, pinned, 1)
}

func TestProjectRepository_UpdateUser(t *testing.T) {
	ctx := context.Background()
	repo := newProjectRepo(t, time.Now())

	rec, _, err := repo.Upsert(ctx, project.Incoming{Key: "/src/app", Name: "app"})
	require.NoError(t, err)

	name := "My App"
	stage := project.StageBeta
	status := project.StatusRedundant
	got, err := repo.UpdateUser(ctx, rec.ID, project.UserPatch{
		TogglePinned: true,
		DisplayName:  &name,
		Stage:        &stage,
		Status:       &status,
	})
	require.NoError(t, err)
	require.True(t, got.Pinned)
	require.Equal(t, "My App", got.DisplayName)
	require.Equal(t, project.StageBeta, got.Stage)
	require.Equal(t, project.StatusRedundant, got.Status)

	got, err = repo.UpdateUser(ctx, rec.ID, project.UserPatch{TogglePinned: true})
	require.NoError(t, err)
	require.False(t, got.Pinned)

	_, err = repo.UpdateUser(ctx, "missing", project.UserPatch{TogglePinned: true})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProjectRepository_MarkMissing(t *testing.T) {
	ctx := context.Background()
	repo := newProjectRepo(t, time.Now())

	for _, in := range []project.Incoming{
		{Key: "github:acme/kept", Name: "kept", Provenance: project.ProvenanceHosted},
		{Key: "github:acme/gone", Name: "gone", Provenance: project.ProvenanceHosted},
		{Key: "vercel:gone", Name: "gone", Provenance: project.ProvenanceHosted},
		{Key: "/src/local", Name: "local", Provenance: project.ProvenanceScanner},
	} {
		_, _, err := repo.Upsert(ctx, in)
		require.NoError(t, err)
	}

	n, err := repo.MarkMissing(ctx, "github:", []string{"github:acme/kept"})
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	gone, err := repo.GetByKey(ctx, "github:acme/gone")
	require.NoError(t, err)
	require.Equal(t, project.StatusRedundant, gone.Status)

	for _, key := range []string{"github:acme/kept", "vercel:gone", "/src/local"} {
		rec, err := repo.GetByKey(ctx, key)
		require.NoError(t, err)
		require.Equal(t, project.StatusActive, rec.Status, key)
	}

	n, err = repo.MarkMissing(ctx, "github:", []string{"github:acme/kept"})
	require.NoError(t, err)
	require.Zero(t, n)
}
