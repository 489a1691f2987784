package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/classify"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/scanner"
	"github.com/rpggio/appcatalog/internal/source"
	"github.com/stretchr/testify/require"
)

func TestSyncGitHub_OneFailureDoesNotAbortBatch(t *testing.T) {
	h := newHarness(t)
	gh := &fakeGitHub{fail: map[string]error{}}
	for i := 1; i <= 12; i++ {
		gh.repos = append(gh.repos, repo("acme", fmt.Sprintf("repo-%02d", i)))
	}
	gh.fail["acme/repo-07"] = &source.UnavailableError{Source: "github", StatusCode: 502, Body: "bad gateway"}

	svc := h.service(Sources{GitHub: gh}, Options{Concurrency: 5})
	sum, err := svc.SyncGitHub(context.Background())
	require.NoError(t, err)

	require.Equal(t, 12, sum.Total)
	require.Equal(t, 11, sum.Succeeded())
	require.Equal(t, 11, sum.Inserted)
	require.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Failures, 1)
	require.Equal(t, "github:acme/repo-07", sum.Failures[0].Key)
	require.Contains(t, sum.Failures[0].Message, "502")
	require.LessOrEqual(t, gh.peak.Load(), int32(5))
	require.Equal(t, 11, h.count(t))
}

func TestSyncGitHub_ReingestionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	now := time.Now().UTC()
	gh := &fakeGitHub{
		repos: []source.Repo{repo("acme", "api"), repo("acme", "web")},
		commits: map[string][]source.Commit{
			"acme/api": {
				commit("a1", "add billing\n\nlong body", now.Add(-2*time.Hour)),
				commit("a2", "fix tests", now.Add(-26*time.Hour)),
			},
			"acme/web": {commit("w1", "initial", now.Add(-time.Hour))},
		},
	}
	svc := h.service(Sources{GitHub: gh}, Options{})

	first, err := svc.SyncGitHub(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, first.Inserted)
	require.Equal(t, 3, first.Events.Added)
	before := h.record(t, "github:acme/api")

	second, err := svc.SyncGitHub(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, second.Inserted)
	require.Equal(t, 2, second.Updated)
	require.Equal(t, 0, second.Events.Added)
	require.Equal(t, 3, second.Events.Unchanged)

	after := h.record(t, "github:acme/api")
	if diff := cmp.Diff(before, after, cmpopts.IgnoreFields(project.Record{}, "UpdatedAt")); diff != "" {
		t.Errorf("record changed on re-ingestion (-before +after):\n%s", diff)
	}
	require.Equal(t, 2, h.count(t))

	events, err := h.events.List(ctx, activity.ListOptions{ProjectID: after.ID})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "add billing", events[0].Title)
	require.Equal(t, "a1", events[0].Metadata[activity.MetaSHA])

	require.NotNil(t, after.LastCommitAt)
	require.WithinDuration(t, now.Add(-2*time.Hour), *after.LastCommitAt, time.Millisecond)
	require.Equal(t, "API service", after.Description)
	require.True(t, after.DescriptionGenerated)
}

func TestSyncGitHub_MarksMissingAndArchived(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	gh := &fakeGitHub{repos: []source.Repo{repo("acme", "kept"), repo("acme", "gone"), repo("acme", "old")}}
	svc := h.service(Sources{GitHub: gh}, Options{MarkMissing: true})

	_, err := svc.SyncGitHub(ctx)
	require.NoError(t, err)

	archived := repo("acme", "old")
	archived.Archived = true
	gh.repos = []source.Repo{repo("acme", "kept"), archived}
	sum, err := svc.SyncGitHub(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), sum.Missing)

	require.Equal(t, project.StatusActive, h.record(t, "github:acme/kept").Status)
	require.Equal(t, project.StatusRedundant, h.record(t, "github:acme/gone").Status)
	require.Equal(t, project.StatusRedundant, h.record(t, "github:acme/old").Status)
}

func TestSyncGitHub_ListingFailureIsReturned(t *testing.T) {
	h := newHarness(t)
	gh := &fakeGitHub{listErr: &source.UnavailableError{Source: "github", StatusCode: 401}}

	_, err := h.service(Sources{GitHub: gh}, Options{}).SyncGitHub(context.Background())
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
}

func TestSyncVercel_LinkedProjectJoinsRepositoryRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	now := time.Now().UTC()

	gh := &fakeGitHub{repos: []source.Repo{repo("Acme", "Shop")}}
	vc := &fakeVercel{
		projects: []source.VercelProject{{
			ID:   "prj_shop",
			Name: "shop-web",
			Link: &source.VercelLink{Type: "github", Org: "acme", Repo: "shop"},
		}},
		deployments: map[string][]source.Deployment{
			"prj_shop": {
				deployment("dpl_ok", "READY", now.Add(-3*time.Hour)),
				deployment("dpl_bad", "ERROR", now.Add(-2*time.Hour)),
				deployment("dpl_q", "QUEUED", now.Add(-time.Hour)),
			},
		},
	}
	svc := h.service(Sources{GitHub: gh, Vercel: vc}, Options{})

	_, err := svc.SyncGitHub(ctx)
	require.NoError(t, err)
	sum, err := svc.SyncVercel(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Updated)
	require.Equal(t, 3, sum.Events.Added)
	require.Equal(t, 1, h.count(t))

	rec := h.record(t, "github:acme/shop")
	require.Equal(t, "prj_shop", rec.VercelProjectID)
	require.Equal(t, "https://dpl_q.vercel.app", rec.LiveURL)
	require.Equal(t, "Shop", rec.Name, "deployment sync does not rename")

	events, err := h.events.List(ctx, activity.ListOptions{ProjectID: rec.ID, Type: activity.TypeDeployment})
	require.NoError(t, err)
	status := map[string]string{}
	for _, ev := range events {
		status[ev.Metadata[activity.MetaUID]] = ev.Metadata[activity.MetaStatus]
	}
	require.Equal(t, map[string]string{"dpl_ok": "success", "dpl_bad": "failed", "dpl_q": "neutral"}, status)

	points, err := h.activity.Heatmap(ctx, rec.ID, activity.TypeDeployment, 7)
	require.NoError(t, err)
	failedDay := now.Add(-2 * time.Hour).Format(time.DateOnly)
	for _, p := range points {
		if p.Date == failedDay {
			require.Equal(t, activity.StatusFailed, p.Status)
		}
	}

	// Refresh policy: a state change on re-sight is stored.
	vc.deployments["prj_shop"][2].State = "READY"
	again, err := svc.SyncVercel(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, again.Events.Refreshed)
	events, err = h.events.List(ctx, activity.ListOptions{ProjectID: rec.ID, Type: activity.TypeDeployment, Limit: 1})
	require.NoError(t, err)
	require.Equal(t, "success", events[0].Metadata[activity.MetaStatus])
}

func TestSyncVercel_UnlinkedProjectFallsBackToName(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	manifests := &fakeManifests{projects: []scanner.Project{{
		Path: "/src/blog",
		Name: "blog",
		Manifest: classify.Manifest{
			Dependencies: map[string]string{"astro": "4.0.0"},
			Markers:      map[string]bool{},
		},
	}}}
	vc := &fakeVercel{projects: []source.VercelProject{
		{ID: "prj_blog", Name: "blog"},
		{ID: "prj_lonely", Name: "lonely"},
	}}
	svc := h.service(Sources{Vercel: vc, Manifests: manifests}, Options{Roots: []string{"/src"}})

	_, err := svc.IngestManifests(ctx)
	require.NoError(t, err)
	sum, err := svc.SyncVercel(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Updated)
	require.Equal(t, 1, sum.Inserted)

	blog := h.record(t, "/src/blog")
	require.Equal(t, "prj_blog", blog.VercelProjectID)
	require.Equal(t, project.ProvenanceScanner, blog.Provenance)

	lonely := h.record(t, "vercel:lonely")
	require.Equal(t, project.ProvenanceHosted, lonely.Provenance)
	require.Equal(t, 2, h.count(t))
}

func TestIngestManifests_ClassifiesBeforeMerge(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	manifests := &fakeManifests{projects: []scanner.Project{
		{
			Path:     "/src/shop-dashboard",
			Name:     "shop-dashboard",
			RepoSlug: "acme/shop",
			Manifest: classify.Manifest{
				Dependencies: map[string]string{"next": "14", "react": "18", "typescript": "5"},
				Markers:      map[string]bool{},
			},
		},
		{
			Path:     "/src/broken",
			Err:      fmt.Errorf("%w: /src/broken: unexpected EOF", classify.ErrManifestUnreadable),
			Manifest: classify.Manifest{Dependencies: map[string]string{}, Markers: map[string]bool{}},
		},
	}}
	svc := h.service(Sources{Manifests: manifests}, Options{Roots: []string{"/src"}})

	sum, err := svc.IngestManifests(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, sum.Inserted)
	require.Zero(t, sum.Failed)

	shop := h.record(t, "/src/shop-dashboard")
	require.Equal(t, "acme/shop", shop.RepoSlug)
	require.Equal(t, "TypeScript", shop.Language)
	require.Equal(t, "Fullstack", shop.Category)
	require.True(t, shop.DescriptionGenerated)
	require.Equal(t, "Dashboard built with Next.js", shop.Description)

	detail, err := h.projects.Detail(ctx, shop.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Snapshot)
	require.Equal(t, "Next.js", detail.Snapshot.Frontend)

	broken := h.record(t, "/src/broken")
	require.Equal(t, "broken", broken.Name)
	snap, err := h.projects.Snapshot(ctx, broken.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Empty(t, snap.Frontend)
	require.Empty(t, snap.Tags)
}

func TestIngestManifests_UnreadableManifestLeavesLanguageUnknown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	manifests := &fakeManifests{projects: []scanner.Project{{
		Path:     "/src/scratch",
		Err:      fmt.Errorf("%w: /src/scratch: unexpected EOF", classify.ErrManifestUnreadable),
		Manifest: classify.Manifest{Dependencies: map[string]string{}, Markers: map[string]bool{}},
	}}}
	svc := h.service(Sources{Manifests: manifests}, Options{Roots: []string{"/src"}})

	sum, err := svc.IngestManifests(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Inserted)

	rec := h.record(t, "/src/scratch")
	require.Empty(t, rec.Language)
	require.Equal(t, "Unknown", rec.Category)
}

func TestIngestPaths_RereadsChangedProject(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	manifests := &fakeManifests{projects: []scanner.Project{{
		Path: "/src/app", Name: "app",
		Manifest: classify.Manifest{Dependencies: map[string]string{"vue": "3"}, Markers: map[string]bool{}},
	}}}
	svc := h.service(Sources{Manifests: manifests}, Options{Roots: []string{"/src"}})

	sum, err := svc.IngestPaths(ctx, []string{"/src/app"})
	require.NoError(t, err)
	require.Equal(t, 1, sum.Inserted)

	snap, err := h.projects.Snapshot(ctx, h.record(t, "/src/app").ID)
	require.NoError(t, err)
	require.Equal(t, "Vue", snap.Frontend)
}

func TestRefreshActivity_UpdatesTimestampsAndEvents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	now := time.Now().UTC()
	gh := &fakeGitHub{
		repos:   []source.Repo{repo("acme", "api")},
		commits: map[string][]source.Commit{"acme/api": {commit("c1", "one", now.Add(-48*time.Hour))}},
	}
	svc := h.service(Sources{GitHub: gh}, Options{})

	_, err := svc.SyncGitHub(ctx)
	require.NoError(t, err)

	gh.commits["acme/api"] = append(gh.commits["acme/api"], commit("c2", "two", now.Add(-time.Hour)))
	sum, err := svc.RefreshActivity(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Total)
	require.Equal(t, 1, sum.Updated)
	require.Equal(t, 1, sum.Events.Added)
	require.Equal(t, 1, sum.Events.Unchanged)

	rec := h.record(t, "github:acme/api")
	require.WithinDuration(t, now.Add(-time.Hour), *rec.LastCommitAt, time.Second)
}

func TestPipelines_SkippedWithoutSources(t *testing.T) {
	ctx := context.Background()
	svc := newHarness(t).service(Sources{}, Options{})

	summaries, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	for _, sum := range summaries {
		require.True(t, sum.Skipped, sum.Source)
	}

	sum, err := svc.RefreshActivity(ctx)
	require.NoError(t, err)
	require.True(t, sum.Skipped)
}

func TestSyncAll_ContinuesAfterListingFailure(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	gh := &fakeGitHub{listErr: errors.New("dns failure")}
	vc := &fakeVercel{projects: []source.VercelProject{{ID: "prj_1", Name: "site"}}}
	svc := h.service(Sources{GitHub: gh, Vercel: vc}, Options{})

	summaries, err := svc.SyncAll(ctx)
	require.ErrorContains(t, err, "dns failure")
	require.Equal(t, []string{PipelineManifests, PipelineGitHub, PipelineVercel},
		[]string{summaries[0].Source, summaries[1].Source, summaries[2].Source})
	require.Equal(t, 1, summaries[2].Inserted)
}
