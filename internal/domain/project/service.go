package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/appcatalog/internal/domain/classify"
	"github.com/rpggio/appcatalog/internal/repository"
)

// Match names the path that tied an incoming record to a catalog entry.
type Match string

const (
	MatchNew  Match = "new"
	MatchKey  Match = "key"
	MatchSlug Match = "slug"
	MatchName Match = "name"
)

// Resolution is the outcome of resolving one incoming record.
type Resolution struct {
	Record   *Record
	Inserted bool
	Match    Match
	// Conflict is set when the fallback had several candidates and one was
	// chosen heuristically.
	Conflict bool
}

// Detail is a record with its classification snapshot.
type Detail struct {
	Record   *Record            `json:"record"`
	Snapshot *classify.Snapshot `json:"snapshot,omitempty"`
}

// Service resolves incoming records against the catalog and applies user edits.
type Service struct {
	repo      Repository
	snapshots SnapshotRepository
	logger    *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, snapshots SnapshotRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, snapshots: snapshots, logger: logger}
}

// Resolve maps in to its catalog entry and merges it, inserting a new record
// when nothing matches. The stable key always wins; the name/slug fallback is
// only consulted when the key is unknown and the source supplied one.
func (s *Service) Resolve(ctx context.Context, in Incoming) (Resolution, error) {
	if strings.TrimSpace(in.Key) == "" {
		return Resolution{}, ErrInvalidInput
	}

	res := Resolution{Match: MatchKey}
	if in.FallbackName != "" || in.FallbackSlug != "" {
		_, err := s.repo.GetByKey(ctx, in.Key)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrNotFound):
			target, match, conflict, err := s.fallback(ctx, in)
			if err != nil {
				return Resolution{}, err
			}
			if target != nil {
				in.Key = target.Key
				res.Match = match
				res.Conflict = conflict
			}
		default:
			return Resolution{}, fmt.Errorf("looking up %s: %w", in.Key, err)
		}
	}

	rec, inserted, err := s.repo.Upsert(ctx, in)
	if err != nil {
		return Resolution{}, fmt.Errorf("upserting %s: %w", in.Key, err)
	}
	res.Record = rec
	res.Inserted = inserted
	if inserted {
		res.Match = MatchNew
	}
	return res, nil
}

func (s *Service) fallback(ctx context.Context, in Incoming) (*Record, Match, bool, error) {
	candidates, err := s.repo.FindCandidates(ctx, in.FallbackName, in.FallbackSlug)
	if err != nil {
		return nil, "", false, fmt.Errorf("finding candidates for %s: %w", in.Key, err)
	}

	var bySlug, byName []Record
	for _, c := range candidates {
		switch {
		case in.FallbackSlug != "" && strings.EqualFold(c.RepoSlug, in.FallbackSlug):
			bySlug = append(bySlug, c)
		case in.FallbackName != "" && c.Name == in.FallbackName:
			byName = append(byName, c)
		}
	}

	pick, match := bySlug, MatchSlug
	if len(pick) == 0 {
		pick, match = byName, MatchName
	}
	if len(pick) == 0 {
		return nil, "", false, nil
	}

	target := pick[0]
	conflict := len(pick) > 1
	if conflict {
		keys := make([]string, 0, len(pick))
		for _, c := range pick {
			keys = append(keys, c.Key)
		}
		s.logger.Warn("ambiguous identity fallback, using oldest candidate",
			"error", ErrIdentityConflict, "project_key", in.Key, "match", match,
			"chosen", target.Key, "candidates", keys)
	}
	s.logger.Info("identity fallback merge", "project_key", in.Key, "match", match, "target", target.Key)
	return &target, match, conflict, nil
}

// Get fetches a record by ID.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return rec, nil
}

// Detail fetches a record together with its snapshot, if any.
func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Record: rec, Snapshot: snap}, nil
}

// List returns catalog records.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	return s.repo.List(ctx, opts)
}

// TogglePinned flips the pinned flag.
func (s *Service) TogglePinned(ctx context.Context, id string) (*Record, error) {
	return s.updateUser(ctx, id, UserPatch{TogglePinned: true})
}

// SetDisplayName sets the display name override. An empty name clears it.
func (s *Service) SetDisplayName(ctx context.Context, id, name string) (*Record, error) {
	name = strings.TrimSpace(name)
	return s.updateUser(ctx, id, UserPatch{DisplayName: &name})
}

// SetStage sets the maturity stage.
func (s *Service) SetStage(ctx context.Context, id, stage string) (*Record, error) {
	st, err := ParseStage(stage)
	if err != nil {
		return nil, err
	}
	return s.updateUser(ctx, id, UserPatch{Stage: &st})
}

// SetStatus sets the lifecycle status by hand.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*Record, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return s.updateUser(ctx, id, UserPatch{Status: &st})
}

func (s *Service) updateUser(ctx context.Context, id string, patch UserPatch) (*Record, error) {
	rec, err := s.repo.UpdateUser(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("updating project: %w", err)
	}
	return rec, nil
}

// MarkMissing flips hosted records of host that were not seen in a complete
// listing to redundant.
func (s *Service) MarkMissing(ctx context.Context, host string, seen []string) (int64, error) {
	n, err := s.repo.MarkMissing(ctx, HostedPrefix(host), seen)
	if err != nil {
		return 0, fmt.Errorf("marking missing %s projects: %w", host, err)
	}
	if n > 0 {
		s.logger.Info("projects no longer listed marked redundant", "source", host, "count", n)
	}
	return n, nil
}

// ReplaceSnapshot stores snap as the record's only snapshot.
func (s *Service) ReplaceSnapshot(ctx context.Context, projectID string, snap classify.Snapshot) error {
	if err := s.snapshots.Replace(ctx, projectID, snap); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the record's snapshot, or nil when it was never classified.
func (s *Service) Snapshot(ctx context.Context, projectID string) (*classify.Snapshot, error) {
	snap, err := s.snapshots.Get(ctx, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	return snap, nil
}

// Breakdown counts catalog records by framework, database, language and category.
func (s *Service) Breakdown(ctx context.Context) (Breakdown, error) {
	records, err := s.repo.List(ctx, ListOptions{})
	if err != nil {
		return Breakdown{}, fmt.Errorf("listing projects: %w", err)
	}
	snaps, err := s.snapshots.List(ctx)
	if err != nil {
		return Breakdown{}, fmt.Errorf("listing snapshots: %w", err)
	}
	return NewBreakdown(records, snaps), nil
}
