package ingest

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/scanner"
	"github.com/rpggio/appcatalog/internal/source"
	"github.com/rpggio/appcatalog/internal/sqlite"
	"github.com/stretchr/testify/require"
)

type harness struct {
	db       *sqlite.DB
	projects *project.Service
	activity *activity.Service
	events   *sqlite.ActivityRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background(), nil))
	t.Cleanup(func() { db.Close() })

	events := sqlite.NewActivityRepository(db)
	return &harness{
		db:       db,
		projects: project.NewService(sqlite.NewProjectRepository(db), sqlite.NewSnapshotRepository(db), nil),
		activity: activity.NewService(events, activity.DefaultPolicies(), nil, nil),
		events:   events,
	}
}

func (h *harness) service(sources Sources, opts Options) *Service {
	return NewService(h.projects, h.activity, sources, opts, nil, nil)
}

func (h *harness) record(t *testing.T, key string) *project.Record {
	t.Helper()
	all, err := h.projects.List(context.Background(), project.ListOptions{})
	require.NoError(t, err)
	for i := range all {
		if all[i].Key == key {
			return &all[i]
		}
	}
	t.Fatalf("no record with key %s", key)
	return nil
}

func (h *harness) count(t *testing.T) int {
	t.Helper()
	all, err := h.projects.List(context.Background(), project.ListOptions{})
	require.NoError(t, err)
	return len(all)
}

type fakeGitHub struct {
	mu       sync.Mutex
	repos    []source.Repo
	commits  map[string][]source.Commit
	fail     map[string]error
	listErr  error
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeGitHub) ListRepos(context.Context) ([]source.Repo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.repos), nil
}

func (f *fakeGitHub) ListCommits(_ context.Context, slug string, _ time.Time) ([]source.Commit, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[slug]; err != nil {
		return nil, err
	}
	return slices.Clone(f.commits[slug]), nil
}

type fakeVercel struct {
	projects    []source.VercelProject
	deployments map[string][]source.Deployment
}

func (f *fakeVercel) ListProjects(context.Context) ([]source.VercelProject, error) {
	return f.projects, nil
}

func (f *fakeVercel) ListDeployments(_ context.Context, projectID string, _ time.Time) ([]source.Deployment, error) {
	return f.deployments[projectID], nil
}

type fakeManifests struct {
	projects []scanner.Project
}

func (f *fakeManifests) Scan([]string) ([]scanner.Project, error) {
	return f.projects, nil
}

func (f *fakeManifests) Detect(dir string) scanner.Project {
	for _, p := range f.projects {
		if p.Path == dir {
			return p
		}
	}
	return scanner.Project{Path: dir}
}

func repo(owner, name string) source.Repo {
	return source.Repo{
		Name:     name,
		FullName: owner + "/" + name,
		HTMLURL:  "https://github.com/" + owner + "/" + name,
		Language: "TypeScript",
	}
}

func commit(sha, msg string, at time.Time) source.Commit {
	var c source.Commit
	c.SHA = sha
	c.HTMLURL = "https://github.com/acme/commit/" + sha
	c.Commit.Message = msg
	c.Commit.Author.Name = "dev"
	c.Commit.Author.Date = at
	return c
}

func deployment(uid, state string, at time.Time) source.Deployment {
	return source.Deployment{
		UID:       uid,
		Name:      "web",
		URL:       uid + ".vercel.app",
		State:     state,
		CreatedAt: at.UnixMilli(),
		Meta:      map[string]any{"githubCommitMessage": "deploy " + uid + "\n\nbody"},
	}
}
