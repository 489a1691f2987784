package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// MaxDays bounds a heatmap window.
const MaxDays = 730

// ErrInvalidInput indicates an event or query that cannot be processed.
var ErrInvalidInput = errors.New("invalid activity input")

// RecordResult counts what happened to a batch of recorded events.
type RecordResult struct {
	Added     int `json:"added"`
	Refreshed int `json:"refreshed"`
	Unchanged int `json:"unchanged"`
}

// Service records activity events and serves heatmaps.
type Service struct {
	repo     Repository
	policies Policies
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new activity service. A nil now uses time.Now.
func NewService(repo Repository, policies Policies, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, policies: policies, logger: logger, now: now}
}

// Record stores events according to the re-ingestion policy of their type.
func (s *Service) Record(ctx context.Context, events []Event) (RecordResult, error) {
	var res RecordResult
	for _, ev := range events {
		if ev.ID == "" || ev.ProjectID == "" {
			return res, ErrInvalidInput
		}
		ev.OccurredAt = ev.OccurredAt.UTC()

		switch s.policies.For(ev.Type) {
		case PolicyRefresh:
			added, err := s.repo.Upsert(ctx, ev)
			if err != nil {
				return res, fmt.Errorf("refreshing event %s: %w", ev.ID, err)
			}
			if added {
				res.Added++
			} else {
				res.Refreshed++
			}
		default:
			added, err := s.repo.AppendIfAbsent(ctx, ev)
			if err != nil {
				return res, fmt.Errorf("appending event %s: %w", ev.ID, err)
			}
			if added {
				res.Added++
			} else {
				res.Unchanged++
			}
		}
	}
	return res, nil
}

// Heatmap aggregates one project's events of typ over the trailing window.
func (s *Service) Heatmap(ctx context.Context, projectID string, typ Type, days int) ([]Point, error) {
	if projectID == "" {
		return nil, ErrInvalidInput
	}
	if err := validateDays(days); err != nil {
		return nil, err
	}
	now := s.now()
	events, err := s.repo.List(ctx, ListOptions{ProjectID: projectID, Type: typ, Since: windowStart(now, days)})
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return Aggregate(events, typ, days, now), nil
}

// GlobalHeatmap sums every project's series into one.
func (s *Service) GlobalHeatmap(ctx context.Context, typ Type, days int) ([]Point, error) {
	if err := validateDays(days); err != nil {
		return nil, err
	}
	now := s.now()
	events, err := s.repo.List(ctx, ListOptions{Type: typ, Since: windowStart(now, days)})
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	if len(events) == 0 {
		return Aggregate(nil, typ, days, now), nil
	}

	byProject := make(map[string][]Event)
	var order []string
	for _, ev := range events {
		if _, ok := byProject[ev.ProjectID]; !ok {
			order = append(order, ev.ProjectID)
		}
		byProject[ev.ProjectID] = append(byProject[ev.ProjectID], ev)
	}
	series := make([][]Point, 0, len(order))
	for _, id := range order {
		series = append(series, Aggregate(byProject[id], typ, days, now))
	}
	return Rollup(series, typ), nil
}

func validateDays(days int) error {
	if days <= 0 || days > MaxDays {
		return fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, MaxDays)
	}
	return nil
}

func windowStart(now time.Time, days int) time.Time {
	return now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
}
