package source_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/appcatalog/internal/source"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	codes []string
}

func (o *recordingObserver) ObserveRequest(_ string, code string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes = append(o.codes, code)
}

func reposPage(start, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, map[string]any{
			"id":        i,
			"name":      fmt.Sprintf("repo-%d", i),
			"full_name": fmt.Sprintf("acme/repo-%d", i),
			"html_url":  fmt.Sprintf("https://github.com/acme/repo-%d", i),
			"pushed_at": "2024-03-01T10:00:00Z",
		})
	}
	return out
}

func newGitHub(t *testing.T, srv *httptest.Server, perPage int, opts ...source.Option) *source.GitHub {
	t.Helper()
	gh, err := source.NewGitHub(source.GitHubConfig{
		Token:   "ghp_test",
		BaseURL: srv.URL,
		PerPage: perPage,
		Timeout: time.Second,
	}, opts...)
	require.NoError(t, err)
	return gh
}

func TestGitHub_ListReposStopsOnShortPage(t *testing.T) {
	var pages []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/repos", r.URL.Path)
		require.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		require.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		require.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
		require.Equal(t, "2", r.URL.Query().Get("per_page"))
		require.Equal(t, "owner", r.URL.Query().Get("affiliation"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, page)
		switch page {
		case 1:
			_ = json.NewEncoder(w).Encode(reposPage(1, 2))
		case 2:
			_ = json.NewEncoder(w).Encode(reposPage(3, 1))
		default:
			t.Errorf("unexpected page %d", page)
		}
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	repos, err := newGitHub(t, srv, 2, source.WithObserver(obs)).ListRepos(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 3)
	require.Equal(t, []int{1, 2}, pages)
	require.Equal(t, "acme/repo-3", repos[2].FullName)
	require.NotNil(t, repos[0].PushedAt)
	require.Equal(t, []string{"200", "200"}, obs.codes)
}

func TestGitHub_ListReposStopsOnEmptyPage(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page <= 2 {
			_ = json.NewEncoder(w).Encode(reposPage(page*10, 2))
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	repos, err := newGitHub(t, srv, 2).ListRepos(context.Background())
	require.NoError(t, err)
	require.Len(t, repos, 4)
	require.Equal(t, 3, calls)
}

func TestGitHub_ErrorStatusFailsWithoutPartialResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			_ = json.NewEncoder(w).Encode(reposPage(1, 2))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"API rate limit exceeded"}`))
	}))
	defer srv.Close()

	repos, err := newGitHub(t, srv, 2).ListRepos(context.Background())
	require.Nil(t, repos)
	require.ErrorIs(t, err, source.ErrSourceUnavailable)

	var ue *source.UnavailableError
	require.True(t, errors.As(err, &ue))
	require.Equal(t, http.StatusForbidden, ue.StatusCode)
	require.Contains(t, ue.Body, "rate limit")
	require.Equal(t, "github", ue.Source)
}

func TestGitHub_ListCommits(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/api/commits", r.URL.Path)
		require.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("since"))
		_, _ = w.Write([]byte(`[{"sha":"abc","html_url":"https://github.com/acme/api/commit/abc",
			"commit":{"message":"feat: add\n\nbody","author":{"name":"Dev","date":"2024-02-02T03:04:05Z"}}}]`))
	}))
	defer srv.Close()

	commits, err := newGitHub(t, srv, 100).ListCommits(context.Background(), "acme/api", since)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	require.Equal(t, "abc", commits[0].SHA)
	require.Equal(t, "Dev", commits[0].Commit.Author.Name)
	require.Equal(t, time.Date(2024, 2, 2, 3, 4, 5, 0, time.UTC), commits[0].Commit.Author.Date)
}

func TestGitHub_ListCommitsEmptyRepository(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Git Repository is empty."}`))
	}))
	defer srv.Close()

	commits, err := newGitHub(t, srv, 100).ListCommits(context.Background(), "acme/empty", time.Time{})
	require.NoError(t, err)
	require.Empty(t, commits)
}

func TestGitHub_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	gh, err := source.NewGitHub(source.GitHubConfig{Token: "t", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = gh.ListRepos(context.Background())
	require.ErrorIs(t, err, source.ErrSourceUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewGitHub_MissingToken(t *testing.T) {
	_, err := source.NewGitHub(source.GitHubConfig{Token: " "})
	require.ErrorIs(t, err, source.ErrConfigurationMissing)
}

func TestDrain_MaxPages(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, cursor source.Cursor) ([]int, source.Cursor, bool, error) {
		calls++
		return []int{calls}, source.Cursor(strconv.Itoa(calls)), false, nil
	}
	items, err := source.Drain[int](context.Background(), fetch, 3)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, items)
	require.Equal(t, 3, calls)
}
