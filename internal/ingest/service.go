// Package ingest drives the sync pipelines: it fetches from the hosted
// sources and the manifest scanner, classifies, resolves records against the
// catalog and stores activity, a bounded chunk of projects at a time.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/classify"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/domain/synth"
	"github.com/rpggio/appcatalog/internal/metrics"
	"github.com/rpggio/appcatalog/internal/scanner"
	"github.com/rpggio/appcatalog/internal/source"
)

// Pipeline names.
const (
	PipelineGitHub    = "github"
	PipelineVercel    = "vercel"
	PipelineManifests = "manifests"
	PipelineActivity  = "activity"
)

// DefaultConcurrency is the chunk size used when none is configured.
const DefaultConcurrency = 5

// RepoSource lists repositories and their commits.
type RepoSource interface {
	ListRepos(ctx context.Context) ([]source.Repo, error)
	ListCommits(ctx context.Context, slug string, since time.Time) ([]source.Commit, error)
}

// DeploymentSource lists deployment projects and their deployments.
type DeploymentSource interface {
	ListProjects(ctx context.Context) ([]source.VercelProject, error)
	ListDeployments(ctx context.Context, projectID string, since time.Time) ([]source.Deployment, error)
}

// ManifestSource discovers projects on disk.
type ManifestSource interface {
	Scan(roots []string) ([]scanner.Project, error)
	Detect(dir string) scanner.Project
}

// Catalog is the subset of the project service the pipelines write through.
type Catalog interface {
	Resolve(ctx context.Context, in project.Incoming) (project.Resolution, error)
	ReplaceSnapshot(ctx context.Context, projectID string, snap classify.Snapshot) error
	Snapshot(ctx context.Context, projectID string) (*classify.Snapshot, error)
	MarkMissing(ctx context.Context, host string, seen []string) (int64, error)
	List(ctx context.Context, opts project.ListOptions) ([]project.Record, error)
}

// Recorder stores activity events.
type Recorder interface {
	Record(ctx context.Context, events []activity.Event) (activity.RecordResult, error)
}

// Options tunes the pipelines.
type Options struct {
	Concurrency  int
	ActivityDays int
	MarkMissing  bool
	Roots        []string
}

// Failure is one unit that did not make it into the catalog.
type Failure struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Summary reports one pipeline run.
type Summary struct {
	Source   string                `json:"source"`
	Total    int                   `json:"total"`
	Inserted int                   `json:"inserted"`
	Updated  int                   `json:"updated"`
	Failed   int                   `json:"failed"`
	Missing  int64                 `json:"marked_missing,omitempty"`
	Events   activity.RecordResult `json:"events"`
	Skipped  bool                  `json:"skipped,omitempty"`
	Reason   string                `json:"reason,omitempty"`
	Failures []Failure             `json:"failures,omitempty"`
}

// Succeeded is the number of units that were stored.
func (s Summary) Succeeded() int {
	return s.Inserted + s.Updated
}

// Sources groups the collaborators a Service pulls from. Any of them may be
// nil, in which case its pipeline is skipped.
type Sources struct {
	GitHub    RepoSource
	Vercel    DeploymentSource
	Manifests ManifestSource
}

// Service runs the sync pipelines.
type Service struct {
	catalog  Catalog
	recorder Recorder
	sources  Sources
	opts     Options
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new ingest service. m may be nil.
func NewService(catalog Catalog, recorder Recorder, sources Sources, opts Options, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.ActivityDays <= 0 {
		opts.ActivityDays = 90
	}
	return &Service{
		catalog:  catalog,
		recorder: recorder,
		sources:  sources,
		opts:     opts,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// unitResult is what one successful unit contributes to its summary.
type unitResult struct {
	inserted bool
	events   activity.RecordResult
}

// run processes items through fn in chunks and folds the outcome into a
// summary.
func run[T any](ctx context.Context, s *Service, pipeline string, items []T, key func(T) string, fn func(ctx context.Context, item T) (unitResult, error)) Summary {
	start := time.Now()
	sum := Summary{Source: pipeline, Total: len(items)}
	results := make([]unitResult, len(items))

	errs := RunChunked(ctx, items, s.opts.Concurrency, func(ctx context.Context, i int, item T) error {
		res, err := fn(ctx, item)
		if err != nil {
			s.logger.Warn("project sync failed",
				"source", pipeline, "project_key", key(item), "chunk", i/s.opts.Concurrency, "error", err)
			return err
		}
		results[i] = res
		return nil
	})

	for i, err := range errs {
		if err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{Key: key(items[i]), Message: err.Error()})
			continue
		}
		if results[i].inserted {
			sum.Inserted++
		} else {
			sum.Updated++
		}
		sum.Events.Added += results[i].events.Added
		sum.Events.Refreshed += results[i].events.Refreshed
		sum.Events.Unchanged += results[i].events.Unchanged
	}

	s.metrics.ObserveOutcome(pipeline, metrics.OutcomeInserted, sum.Inserted)
	s.metrics.ObserveOutcome(pipeline, metrics.OutcomeUpdated, sum.Updated)
	s.metrics.ObserveOutcome(pipeline, metrics.OutcomeFailed, sum.Failed)
	s.metrics.ObserveRun(pipeline, time.Since(start))
	s.logger.Info("sync finished", "source", pipeline, "total", sum.Total,
		"inserted", sum.Inserted, "updated", sum.Updated, "failed", sum.Failed,
		"events_added", sum.Events.Added, "duration", time.Since(start))
	return sum
}

func (s *Service) skipped(pipeline, reason string) Summary {
	s.logger.Info("sync skipped", "source", pipeline, "reason", reason, "error", source.ErrConfigurationMissing)
	s.metrics.ObserveOutcome(pipeline, metrics.OutcomeSkipped, 1)
	return Summary{Source: pipeline, Skipped: true, Reason: reason}
}

func (s *Service) since() time.Time {
	return s.now().UTC().AddDate(0, 0, -s.opts.ActivityDays)
}

// synthesize fills category and, unless a human wrote one, the description
// of rec from its snapshot and raw metadata. A nil snap is loaded.
func (s *Service) synthesize(ctx context.Context, rec *project.Record, snap *classify.Snapshot) error {
	if snap == nil {
		stored, err := s.catalog.Snapshot(ctx, rec.ID)
		if err != nil {
			return err
		}
		snap = &classify.Snapshot{}
		if stored != nil {
			snap = stored
		}
	}

	facts := synth.FromSnapshot(rec.Name, rec.Language, *snap)
	in := project.Incoming{Key: rec.Key}
	if category := string(synth.InferCategory(facts)); category != rec.Category {
		in.Fields |= project.FieldCategory
		in.Category = category
	}
	if rec.Description == "" || rec.DescriptionGenerated {
		if desc := synth.Describe(facts); desc != rec.Description {
			in.Fields |= project.FieldDescription
			in.Description = desc
			in.DescriptionGenerated = true
		}
	}
	if in.Fields == 0 {
		return nil
	}
	res, err := s.catalog.Resolve(ctx, in)
	if err != nil {
		return err
	}
	*rec = *res.Record
	return nil
}
