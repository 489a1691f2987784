package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rpggio/appcatalog/internal/domain/classify"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/scanner"
)

// IngestManifests scans the configured roots and classifies every project
// found, keyed by its path.
func (s *Service) IngestManifests(ctx context.Context) (Summary, error) {
	if s.sources.Manifests == nil || len(s.opts.Roots) == 0 {
		return s.skipped(PipelineManifests, "no scan roots configured"), nil
	}

	projects, err := s.sources.Manifests.Scan(s.opts.Roots)
	if err != nil {
		return Summary{Source: PipelineManifests}, fmt.Errorf("scanning roots: %w", err)
	}
	return run(ctx, s, PipelineManifests, projects, manifestKey, s.ingestManifest), nil
}

// IngestPaths re-reads the given project directories, as reported by the
// scanner's watch mode.
func (s *Service) IngestPaths(ctx context.Context, dirs []string) (Summary, error) {
	if s.sources.Manifests == nil {
		return s.skipped(PipelineManifests, "no manifest source configured"), nil
	}
	projects := make([]scanner.Project, 0, len(dirs))
	for _, dir := range dirs {
		projects = append(projects, s.sources.Manifests.Detect(dir))
	}
	return run(ctx, s, PipelineManifests, projects, manifestKey, s.ingestManifest), nil
}

func manifestKey(p scanner.Project) string {
	return project.PathKey(p.Path)
}

func (s *Service) ingestManifest(ctx context.Context, p scanner.Project) (unitResult, error) {
	if p.Err != nil {
		if !errors.Is(p.Err, classify.ErrManifestUnreadable) {
			return unitResult{}, p.Err
		}
		s.logger.Warn("classifying with empty manifest", "project_key", manifestKey(p), "error", p.Err)
	}

	// Classification completes before the record is touched.
	snap := classify.Classify(p.Manifest, s.now().UTC())

	name := p.Name
	if name == "" {
		name = filepath.Base(p.Path)
	}
	in := project.Incoming{
		Key:        manifestKey(p),
		Name:       name,
		Provenance: project.ProvenanceScanner,
		Fields:     project.FieldName,
	}
	// An unreadable manifest says nothing about the language.
	if p.Err == nil {
		in.Fields |= project.FieldLanguage
		in.Language = manifestLanguage(p.Manifest)
	}
	if p.RepoSlug != "" {
		in.Fields |= project.FieldRepoSlug
		in.RepoSlug = p.RepoSlug
	}
	if p.VercelProjectID != "" {
		in.Fields |= project.FieldVercelProject
		in.VercelProjectID = p.VercelProjectID
	}

	res, err := s.catalog.Resolve(ctx, in)
	if err != nil {
		return unitResult{}, err
	}
	if err := s.catalog.ReplaceSnapshot(ctx, res.Record.ID, snap); err != nil {
		return unitResult{}, err
	}
	if err := s.synthesize(ctx, res.Record, &snap); err != nil {
		return unitResult{}, err
	}
	return unitResult{inserted: res.Inserted}, nil
}

func manifestLanguage(m classify.Manifest) string {
	if m.Has("typescript") {
		return "TypeScript"
	}
	return "JavaScript"
}
