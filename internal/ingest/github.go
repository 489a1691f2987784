package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/source"
)

// SyncGitHub lists every repository, pulls its recent commits and resolves it
// into the catalog. After a complete listing, hosted GitHub records that were
// not listed are marked redundant when configured.
func (s *Service) SyncGitHub(ctx context.Context) (Summary, error) {
	if s.sources.GitHub == nil {
		return s.skipped(PipelineGitHub, "no GitHub token configured"), nil
	}

	repos, err := s.sources.GitHub.ListRepos(ctx)
	if err != nil {
		return Summary{Source: PipelineGitHub}, fmt.Errorf("listing repositories: %w", err)
	}

	sum := run(ctx, s, PipelineGitHub, repos, repoKey, s.syncRepo)

	if s.opts.MarkMissing && len(repos) > 0 {
		seen := make([]string, 0, len(repos))
		for _, r := range repos {
			seen = append(seen, repoKey(r))
		}
		n, err := s.catalog.MarkMissing(ctx, project.HostGitHub, seen)
		if err != nil {
			return sum, err
		}
		sum.Missing = n
	}
	return sum, nil
}

func repoKey(r source.Repo) string {
	return project.HostedKey(project.HostGitHub, r.FullName)
}

func (s *Service) syncRepo(ctx context.Context, repo source.Repo) (unitResult, error) {
	commits, err := s.sources.GitHub.ListCommits(ctx, repo.FullName, s.since())
	if err != nil {
		return unitResult{}, err
	}

	in := project.Incoming{
		Key:        repoKey(repo),
		Name:       repo.Name,
		Provenance: project.ProvenanceHosted,
		Fields: project.FieldName | project.FieldStatus | project.FieldRepoSlug |
			project.FieldHTMLURL | project.FieldLanguage,
		Status:       project.StatusActive,
		RepoSlug:     repo.FullName,
		HTMLURL:      repo.HTMLURL,
		Language:     repo.Language,
		FallbackSlug: repo.FullName,
	}
	if repo.Archived {
		in.Status = project.StatusRedundant
	}
	if repo.Description != "" {
		in.Fields |= project.FieldDescription
		in.Description = repo.Description
	}
	if last := lastCommit(commits, repo.PushedAt); last != nil {
		in.Fields |= project.FieldLastCommit
		in.LastCommitAt = last
	}

	res, err := s.catalog.Resolve(ctx, in)
	if err != nil {
		return unitResult{}, err
	}
	rec := res.Record
	if err := s.synthesize(ctx, rec, nil); err != nil {
		return unitResult{}, err
	}

	recorded, err := s.recorder.Record(ctx, commitEvents(rec, commits))
	if err != nil {
		return unitResult{}, err
	}
	return unitResult{inserted: res.Inserted, events: recorded}, nil
}

func commitEvents(rec *project.Record, commits []source.Commit) []activity.Event {
	events := make([]activity.Event, 0, len(commits))
	for _, c := range commits {
		if c.SHA == "" {
			continue
		}
		events = append(events, activity.Event{
			ID:         activity.EventID(rec.Key, activity.TypeCommit, c.SHA),
			ProjectID:  rec.ID,
			Type:       activity.TypeCommit,
			OccurredAt: c.Commit.Author.Date,
			Title:      activity.FirstLine(c.Commit.Message),
			URL:        c.HTMLURL,
			Metadata: map[string]string{
				activity.MetaAuthor: c.Commit.Author.Name,
				activity.MetaSHA:    c.SHA,
			},
		})
	}
	return events
}

// lastCommit is the newest commit time, or pushedAt when no commits were
// fetched.
func lastCommit(commits []source.Commit, pushedAt *time.Time) *time.Time {
	var last time.Time
	for _, c := range commits {
		if c.Commit.Author.Date.After(last) {
			last = c.Commit.Author.Date
		}
	}
	if last.IsZero() {
		if pushedAt == nil {
			return nil
		}
		last = *pushedAt
	}
	last = last.UTC()
	return &last
}
