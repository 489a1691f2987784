package classify

import (
	"errors"
	"time"
)

// ErrManifestUnreadable marks a dependency manifest that is missing or cannot
// be parsed. Classification then proceeds from an empty manifest.
var ErrManifestUnreadable = errors.New("manifest unreadable")

// Manifest is what a manifest source supplies for one project.
type Manifest struct {
	// Dependencies maps package name to version, normal and dev merged.
	Dependencies map[string]string
	// Markers holds the marker files found on disk, by relative path.
	Markers map[string]bool
	// Override is the parsed override file, if present.
	Override *Override
}

// Has reports whether name is a declared dependency.
func (m Manifest) Has(name string) bool {
	_, ok := m.Dependencies[name]
	return ok
}

// Snapshot is the tech-stack summary of one project. It is always replaced
// as a whole.
type Snapshot struct {
	Frontend  string    `json:"frontend,omitempty"`
	Backend   string    `json:"backend,omitempty"`
	Database  string    `json:"database,omitempty"`
	Auth      string    `json:"auth,omitempty"`
	Tags      []string  `json:"tags"`
	ScannedAt time.Time `json:"scanned_at"`
}

// Override pins classification fields by hand. A nil field is left to the
// rules; a set field wins, even when empty.
type Override struct {
	Frontend *string  `yaml:"frontend"`
	Backend  *string  `yaml:"backend"`
	Database *string  `yaml:"database"`
	Auth     *string  `yaml:"auth"`
	Tags     []string `yaml:"tags"`
}
