package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/source"
)

// SyncVercel lists every deployment project, pulls its recent deployments and
// resolves it into the catalog. A project linked to a repository is keyed by
// that repository so it lands on the same record as the repository sync.
func (s *Service) SyncVercel(ctx context.Context) (Summary, error) {
	if s.sources.Vercel == nil {
		return s.skipped(PipelineVercel, "no Vercel token configured"), nil
	}

	projects, err := s.sources.Vercel.ListProjects(ctx)
	if err != nil {
		return Summary{Source: PipelineVercel}, fmt.Errorf("listing deployment projects: %w", err)
	}
	return run(ctx, s, PipelineVercel, projects, vercelKey, s.syncDeploymentProject), nil
}

func vercelKey(p source.VercelProject) string {
	if slug := p.RepoSlug(); slug != "" {
		host := p.RepoHost()
		if host == "" {
			host = project.HostGitHub
		}
		return project.HostedKey(host, slug)
	}
	return project.PlaceholderKey(project.HostVercel, p.Name)
}

func (s *Service) syncDeploymentProject(ctx context.Context, p source.VercelProject) (unitResult, error) {
	deployments, err := s.sources.Vercel.ListDeployments(ctx, p.ID, s.since())
	if err != nil {
		return unitResult{}, err
	}

	slug := p.RepoSlug()
	in := project.Incoming{
		Key:             vercelKey(p),
		Name:            p.Name,
		Provenance:      project.ProvenanceHosted,
		Fields:          project.FieldVercelProject,
		VercelProjectID: p.ID,
		FallbackName:    p.Name,
		FallbackSlug:    slug,
	}
	if slug != "" {
		in.Fields |= project.FieldRepoSlug
		in.RepoSlug = slug
	}
	if live := liveURL(p, deployments); live != "" {
		in.Fields |= project.FieldLiveURL
		in.LiveURL = live
	}
	if last := lastDeployment(p, deployments); last != nil {
		in.Fields |= project.FieldLastDeployment
		in.LastDeploymentAt = last
	}

	res, err := s.catalog.Resolve(ctx, in)
	if err != nil {
		return unitResult{}, err
	}
	rec := res.Record
	if res.Inserted {
		if err := s.synthesize(ctx, rec, nil); err != nil {
			return unitResult{}, err
		}
	}

	recorded, err := s.recorder.Record(ctx, deploymentEvents(rec, deployments))
	if err != nil {
		return unitResult{}, err
	}
	return unitResult{inserted: res.Inserted, events: recorded}, nil
}

func deploymentEvents(rec *project.Record, deployments []source.Deployment) []activity.Event {
	events := make([]activity.Event, 0, len(deployments))
	for _, d := range deployments {
		uid := d.NativeID()
		if uid == "" {
			continue
		}
		title := activity.FirstLine(d.CommitMessage())
		if title == "" {
			title = d.Name
		}
		meta := map[string]string{
			activity.MetaUID:    uid,
			activity.MetaState:  d.Phase(),
			activity.MetaStatus: string(DeploymentStatus(d.Phase())),
		}
		if author := d.Author(); author != "" {
			meta[activity.MetaAuthor] = author
		}
		events = append(events, activity.Event{
			ID:         activity.EventID(rec.Key, activity.TypeDeployment, uid),
			ProjectID:  rec.ID,
			Type:       activity.TypeDeployment,
			OccurredAt: d.Time(),
			Title:      title,
			URL:        d.LiveURL(),
			Metadata:   meta,
		})
	}
	return events
}

// DeploymentStatus normalizes a raw deployment state.
func DeploymentStatus(state string) activity.Status {
	switch state {
	case "READY":
		return activity.StatusSuccess
	case "ERROR":
		return activity.StatusFailed
	default:
		return activity.StatusNeutral
	}
}

func liveURL(p source.VercelProject, deployments []source.Deployment) string {
	if latest := p.Latest(); latest != nil && latest.URL != "" {
		return latest.LiveURL()
	}
	var newest *source.Deployment
	for i := range deployments {
		if newest == nil || deployments[i].Time().After(newest.Time()) {
			newest = &deployments[i]
		}
	}
	if newest == nil {
		return ""
	}
	return newest.LiveURL()
}

func lastDeployment(p source.VercelProject, deployments []source.Deployment) *time.Time {
	var last time.Time
	for _, d := range deployments {
		if t := d.Time(); t.After(last) {
			last = t
		}
	}
	if latest := p.Latest(); latest != nil && latest.Time().After(last) {
		last = latest.Time()
	}
	if last.IsZero() || last.Unix() == 0 {
		return nil
	}
	return &last
}
