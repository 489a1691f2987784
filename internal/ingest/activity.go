package ingest

import (
	"context"
	"time"

	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/project"
)

// RefreshActivity pulls recent commits and deployments for every catalogued
// project that has a repository slug or deployment project id.
func (s *Service) RefreshActivity(ctx context.Context) (Summary, error) {
	if s.sources.GitHub == nil && s.sources.Vercel == nil {
		return s.skipped(PipelineActivity, "no activity source configured"), nil
	}

	records, err := s.catalog.List(ctx, project.ListOptions{})
	if err != nil {
		return Summary{Source: PipelineActivity}, err
	}
	var targets []project.Record
	for _, rec := range records {
		if (rec.RepoSlug != "" && s.sources.GitHub != nil) || (rec.VercelProjectID != "" && s.sources.Vercel != nil) {
			targets = append(targets, rec)
		}
	}

	key := func(rec project.Record) string { return rec.Key }
	return run(ctx, s, PipelineActivity, targets, key, s.refreshRecord), nil
}

func (s *Service) refreshRecord(ctx context.Context, rec project.Record) (unitResult, error) {
	since := s.since()
	var events []activity.Event
	in := project.Incoming{Key: rec.Key}

	if rec.RepoSlug != "" && s.sources.GitHub != nil {
		commits, err := s.sources.GitHub.ListCommits(ctx, rec.RepoSlug, since)
		if err != nil {
			return unitResult{}, err
		}
		events = append(events, commitEvents(&rec, commits)...)
		if last := lastCommit(commits, nil); last != nil && newer(last, rec.LastCommitAt) {
			in.Fields |= project.FieldLastCommit
			in.LastCommitAt = last
		}
	}

	if rec.VercelProjectID != "" && s.sources.Vercel != nil {
		deployments, err := s.sources.Vercel.ListDeployments(ctx, rec.VercelProjectID, since)
		if err != nil {
			return unitResult{}, err
		}
		events = append(events, deploymentEvents(&rec, deployments)...)
		var latest *activity.Event
		for i := range events {
			if events[i].Type == activity.TypeDeployment && (latest == nil || events[i].OccurredAt.After(latest.OccurredAt)) {
				latest = &events[i]
			}
		}
		if latest != nil && newer(&latest.OccurredAt, rec.LastDeploymentAt) {
			t := latest.OccurredAt
			in.Fields |= project.FieldLastDeployment
			in.LastDeploymentAt = &t
		}
	}

	if in.Fields != 0 {
		if _, err := s.catalog.Resolve(ctx, in); err != nil {
			return unitResult{}, err
		}
	}
	recorded, err := s.recorder.Record(ctx, events)
	if err != nil {
		return unitResult{}, err
	}
	return unitResult{events: recorded}, nil
}

func newer(t, than *time.Time) bool {
	return than == nil || t.After(*than)
}
