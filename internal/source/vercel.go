package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultVercelURL   = "https://api.vercel.com"
	defaultVercelLimit = 100
)

// VercelConfig configures the Vercel adapter.
type VercelConfig struct {
	Token             string
	TeamID            string
	BaseURL           string
	Limit             int
	DeploymentPages   int
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// VercelLink is the git repository a Vercel project deploys from.
type VercelLink struct {
	Type   string `json:"type"`
	Org    string `json:"org"`
	Repo   string `json:"repo"`
	RepoID int64  `json:"repoId"`
}

// VercelProject is a project as listed by Vercel.
type VercelProject struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Framework         string       `json:"framework"`
	Link              *VercelLink  `json:"link"`
	LatestDeployments []Deployment `json:"latestDeployments"`
}

// RepoSlug is owner/repo of the linked repository, if any.
func (p VercelProject) RepoSlug() string {
	if p.Link == nil || p.Link.Org == "" || p.Link.Repo == "" {
		return ""
	}
	return p.Link.Org + "/" + p.Link.Repo
}

// RepoHost is the git host of the linked repository, e.g. "github".
func (p VercelProject) RepoHost() string {
	if p.Link == nil {
		return ""
	}
	return p.Link.Type
}

// Latest returns the most recent of the project's latest deployments.
func (p VercelProject) Latest() *Deployment {
	var latest *Deployment
	for i := range p.LatestDeployments {
		d := &p.LatestDeployments[i]
		if latest == nil || d.Time().After(latest.Time()) {
			latest = d
		}
	}
	return latest
}

// Deployment is one Vercel deployment.
type Deployment struct {
	UID        string         `json:"uid"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	URL        string         `json:"url"`
	State      string         `json:"state"`
	ReadyState string         `json:"readyState"`
	Created    int64          `json:"created"`
	CreatedAt  int64          `json:"createdAt"`
	Target     string         `json:"target"`
	Meta       map[string]any `json:"meta"`
	Creator    *struct {
		Username string `json:"username"`
	} `json:"creator"`
}

// NativeID is the deployment's Vercel identifier.
func (d Deployment) NativeID() string {
	if d.UID != "" {
		return d.UID
	}
	return d.ID
}

// Time is when the deployment was created.
func (d Deployment) Time() time.Time {
	ms := d.CreatedAt
	if ms == 0 {
		ms = d.Created
	}
	return time.UnixMilli(ms).UTC()
}

// Phase is the raw deployment state, e.g. READY or ERROR.
func (d Deployment) Phase() string {
	if d.State != "" {
		return d.State
	}
	return d.ReadyState
}

// LiveURL is the deployment URL with a scheme.
func (d Deployment) LiveURL() string {
	if d.URL == "" || strings.Contains(d.URL, "://") {
		return d.URL
	}
	return "https://" + d.URL
}

// CommitMessage is the message of the commit that triggered the deployment.
func (d Deployment) CommitMessage() string {
	return d.metaString("githubCommitMessage")
}

// Author is the user behind the deployment.
func (d Deployment) Author() string {
	if d.Creator != nil && d.Creator.Username != "" {
		return d.Creator.Username
	}
	return d.metaString("githubCommitAuthorName")
}

func (d Deployment) metaString(key string) string {
	s, _ := d.Meta[key].(string)
	return s
}

// Vercel lists projects and deployments using cursor pagination.
type Vercel struct {
	c               *client
	teamID          string
	limit           int
	deploymentPages int
}

// NewVercel creates the adapter. It fails with ErrConfigurationMissing when
// no token is configured.
func NewVercel(cfg VercelConfig, opts ...Option) (*Vercel, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("vercel: %w", ErrConfigurationMissing)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultVercelURL
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultVercelLimit
	}
	if cfg.DeploymentPages <= 0 {
		cfg.DeploymentPages = 1
	}
	c := newClient("vercel", cfg.BaseURL, cfg.Token, cfg.RequestsPerSecond, cfg.Burst, cfg.Timeout, opts)
	return &Vercel{c: c, teamID: cfg.TeamID, limit: cfg.Limit, deploymentPages: cfg.DeploymentPages}, nil
}

// ProjectPages pages through every project of the account or team.
func (v *Vercel) ProjectPages() PageFetcher[VercelProject] {
	return cursorPages[VercelProject](v.c, "/v9/projects", v.query(), v.limit, "projects")
}

// ListProjects drains ProjectPages.
func (v *Vercel) ListProjects(ctx context.Context) ([]VercelProject, error) {
	return Drain(ctx, v.ProjectPages(), 0)
}

// ListDeployments returns deployments of a project created since the given
// time, reading at most the configured number of pages.
func (v *Vercel) ListDeployments(ctx context.Context, projectID string, since time.Time) ([]Deployment, error) {
	q := v.query()
	q.Set("projectId", projectID)
	if !since.IsZero() {
		q.Set("since", strconv.FormatInt(since.UnixMilli(), 10))
	}
	return Drain(ctx, cursorPages[Deployment](v.c, "/v6/deployments", q, v.limit, "deployments"), v.deploymentPages)
}

func (v *Vercel) query() url.Values {
	q := url.Values{}
	if v.teamID != "" {
		q.Set("teamId", v.teamID)
	}
	return q
}

// cursorPages requests pages of limit items from an envelope holding the
// items under field and a pagination.next cursor. A missing cursor ends the
// listing.
func cursorPages[T any](c *client, path string, query url.Values, limit int, field string) PageFetcher[T] {
	return func(ctx context.Context, cursor Cursor) ([]T, Cursor, bool, error) {
		q := cloneValues(query)
		q.Set("limit", strconv.Itoa(limit))
		if cursor != "" {
			q.Set("until", string(cursor))
		}

		var env map[string]json.RawMessage
		if err := c.getJSON(ctx, path, q, &env); err != nil {
			return nil, "", false, err
		}
		var items []T
		if raw, ok := env[field]; ok && len(raw) > 0 {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, "", false, fmt.Errorf("failed to decode %s %s: %w", c.name, field, err)
			}
		}
		next := nextCursor(env["pagination"])
		if next == "" {
			return items, "", true, nil
		}
		return items, next, false, nil
	}
}

func nextCursor(raw json.RawMessage) Cursor {
	if len(raw) == 0 {
		return ""
	}
	var p struct {
		Next json.RawMessage `json:"next"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	s := strings.Trim(strings.TrimSpace(string(p.Next)), `"`)
	if s == "" || s == "null" {
		return ""
	}
	return Cursor(s)
}
