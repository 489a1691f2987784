package classify

import (
	"strings"
	"time"
)

// Classify derives a snapshot from m. Each single-valued field takes the first
// matching rule of its list; tags collect every matching tag rule. Fields the
// override sets replace the derived ones and override tags are added.
func Classify(m Manifest, now time.Time) Snapshot {
	snap := Snapshot{
		Frontend:  First(Frameworks, m),
		Backend:   First(Backends, m),
		Database:  First(Databases, m),
		Auth:      First(AuthProviders, m),
		Tags:      []string{},
		ScannedAt: now.UTC(),
	}
	for _, r := range TagRules {
		if r.Match(m) {
			snap.Tags = append(snap.Tags, r.Label)
		}
	}

	if o := m.Override; o != nil {
		if o.Frontend != nil {
			snap.Frontend = *o.Frontend
		}
		if o.Backend != nil {
			snap.Backend = *o.Backend
		}
		if o.Database != nil {
			snap.Database = *o.Database
		}
		if o.Auth != nil {
			snap.Auth = *o.Auth
		}
		snap.Tags = unionTags(snap.Tags, o.Tags)
	}
	return snap
}

// unionTags appends extra to tags, skipping case-insensitive duplicates.
func unionTags(tags, extra []string) []string {
	seen := make(map[string]bool, len(tags)+len(extra))
	for _, t := range tags {
		seen[strings.ToLower(t)] = true
	}
	for _, t := range extra {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, t)
	}
	return tags
}
