package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGitHubURL = "https://api.github.com"
	githubAPIVersion = "2022-11-28"
	defaultPerPage   = 100
)

// GitHubConfig configures the GitHub adapter.
type GitHubConfig struct {
	Token             string
	BaseURL           string
	PerPage           int
	CommitPages       int
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Repo is a repository as listed by GitHub.
type Repo struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	HTMLURL     string     `json:"html_url"`
	Description string     `json:"description"`
	Language    string     `json:"language"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PushedAt    *time.Time `json:"pushed_at"`
	Private     bool       `json:"private"`
	Fork        bool       `json:"fork"`
	Archived    bool       `json:"archived"`
}

// Commit is one entry of a repository's commit listing.
type Commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// GitHub lists the authenticated user's repositories and their commits using
// offset pagination.
type GitHub struct {
	c           *client
	perPage     int
	commitPages int
}

// NewGitHub creates the adapter. It fails with ErrConfigurationMissing when
// no token is configured.
func NewGitHub(cfg GitHubConfig, opts ...Option) (*GitHub, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("github: %w", ErrConfigurationMissing)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGitHubURL
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.CommitPages <= 0 {
		cfg.CommitPages = 1
	}
	c := newClient("github", cfg.BaseURL, cfg.Token, cfg.RequestsPerSecond, cfg.Burst, cfg.Timeout, opts)
	c.headers["Accept"] = "application/vnd.github+json"
	c.headers["X-GitHub-Api-Version"] = githubAPIVersion
	return &GitHub{c: c, perPage: cfg.PerPage, commitPages: cfg.CommitPages}, nil
}

// RepoPages pages through the user's own repositories, most recently updated
// first.
func (g *GitHub) RepoPages() PageFetcher[Repo] {
	q := url.Values{"sort": {"updated"}, "affiliation": {"owner"}}
	return offsetPages[Repo](g.c, "/user/repos", q, g.perPage)
}

// ListRepos drains RepoPages.
func (g *GitHub) ListRepos(ctx context.Context) ([]Repo, error) {
	return Drain(ctx, g.RepoPages(), 0)
}

// ListCommits returns commits of slug since the given time, reading at most
// the configured number of pages. An empty repository has no commits.
func (g *GitHub) ListCommits(ctx context.Context, slug string, since time.Time) ([]Commit, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	commits, err := Drain(ctx, offsetPages[Commit](g.c, "/repos/"+strings.Trim(slug, "/")+"/commits", q, g.perPage), g.commitPages)
	var ue *UnavailableError
	if errors.As(err, &ue) && ue.StatusCode == http.StatusConflict {
		return nil, nil
	}
	return commits, err
}

// offsetPages requests fixed-size pages numbered from 1. A page shorter than
// perPage, including an empty one, is the last.
func offsetPages[T any](c *client, path string, query url.Values, perPage int) PageFetcher[T] {
	return func(ctx context.Context, cursor Cursor) ([]T, Cursor, bool, error) {
		page := 1
		if cursor != "" {
			n, err := strconv.Atoi(string(cursor))
			if err != nil || n < 1 {
				return nil, "", false, fmt.Errorf("invalid page cursor %q", cursor)
			}
			page = n
		}
		q := cloneValues(query)
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		var items []T
		if err := c.getJSON(ctx, path, q, &items); err != nil {
			return nil, "", false, err
		}
		if len(items) < perPage {
			return items, "", true, nil
		}
		return items, Cursor(strconv.Itoa(page + 1)), false, nil
	}
}
