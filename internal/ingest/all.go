package ingest

import (
	"context"
	"errors"
)

// SyncAll runs every pipeline in turn. Manifests go first so that hosted
// projects can fall back onto records already keyed by path. A pipeline whose
// listing fails does not stop the ones after it.
func (s *Service) SyncAll(ctx context.Context) ([]Summary, error) {
	steps := []func(context.Context) (Summary, error){
		s.IngestManifests,
		s.SyncGitHub,
		s.SyncVercel,
	}
	var (
		summaries []Summary
		errs      []error
	)
	for _, step := range steps {
		sum, err := step(ctx)
		summaries = append(summaries, sum)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return summaries, errors.Join(errs...)
}
