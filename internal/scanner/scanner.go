// Package scanner discovers JavaScript projects on disk and reads the
// dependency manifest, marker files and repository links of each.
package scanner

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rpggio/appcatalog/internal/domain/classify"
)

// DefaultOverrideFile is the per-project override file name.
const DefaultOverrideFile = "catalog.yaml"

var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	".next":        true,
	".turbo":       true,
	".vercel":      true,
	".pnpm-store":  true,
}

// markerFiles are checked relative to each project directory.
var markerFiles = []string{
	"next.config.js", "next.config.mjs", "next.config.ts",
	"prisma/schema.prisma",
	"drizzle.config.ts", "drizzle.config.js", "drizzle.config.mjs",
	"convex.json",
	"pb_data",
	"tailwind.config.js", "tailwind.config.cjs", "tailwind.config.mjs", "tailwind.config.ts",
	"components.json",
	"pnpm-lock.yaml", "yarn.lock", "bun.lockb", "package-lock.json",
}

var lockfiles = []struct {
	file    string
	manager string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"bun.lockb", "bun"},
	{"package-lock.json", "npm"},
}

// Project is one discovered project.
type Project struct {
	Path            string
	Name            string
	PackageManager  string
	RepoSlug        string
	VercelProjectID string
	VercelOrgID     string
	Manifest        classify.Manifest
	// Err wraps classify.ErrManifestUnreadable when package.json could not
	// be parsed. Manifest is then empty apart from markers.
	Err error
}

// Scanner reads projects from the filesystem.
type Scanner struct {
	overrideFile string
	logger       *slog.Logger
}

// New creates a scanner. An empty overrideFile uses DefaultOverrideFile.
func New(overrideFile string, logger *slog.Logger) *Scanner {
	if overrideFile == "" {
		overrideFile = DefaultOverrideFile
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scanner{overrideFile: overrideFile, logger: logger}
}

// Scan discovers and detects every project under roots.
func (s *Scanner) Scan(roots []string) ([]Project, error) {
	var projects []Project
	for _, root := range roots {
		dirs, err := Find(root)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			projects = append(projects, s.Detect(dir))
		}
	}
	return projects, nil
}

// Find returns directories under root that contain a package.json. It does
// not descend into a project directory once found.
func Find(root string) ([]string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}
	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (excludedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
			return fs.SkipDir
		}
		if fileExists(filepath.Join(path, "package.json")) {
			dirs = append(dirs, path)
			return fs.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}

type packageJSON struct {
	Name            string            `json:"name"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// Detect reads one project directory.
func (s *Scanner) Detect(dir string) Project {
	p := Project{
		Path: dir,
		Name: filepath.Base(dir),
		Manifest: classify.Manifest{
			Dependencies: map[string]string{},
			Markers:      map[string]bool{},
		},
	}

	pkg, err := readPackageJSON(filepath.Join(dir, "package.json"))
	if err != nil {
		p.Err = fmt.Errorf("%w: %s: %v", classify.ErrManifestUnreadable, dir, err)
	} else {
		if pkg.Name != "" {
			p.Name = pkg.Name
		}
		for name, v := range pkg.Dependencies {
			p.Manifest.Dependencies[name] = v
		}
		for name, v := range pkg.DevDependencies {
			p.Manifest.Dependencies[name] = v
		}
	}

	for _, m := range markerFiles {
		if pathExists(filepath.Join(dir, filepath.FromSlash(m))) {
			p.Manifest.Markers[m] = true
		}
	}
	for _, lf := range lockfiles {
		if p.Manifest.Markers[lf.file] {
			p.PackageManager = lf.manager
			break
		}
	}

	if data, err := os.ReadFile(filepath.Join(dir, s.overrideFile)); err == nil {
		o, err := classify.ParseOverride(data)
		if err != nil {
			s.logger.Warn("ignoring override file", "path", dir, "error", err)
		} else {
			p.Manifest.Override = o
		}
	}

	if remote := originURL(filepath.Join(dir, ".git", "config")); remote != "" {
		p.RepoSlug = RepoSlug(remote)
	}
	p.VercelProjectID, p.VercelOrgID = vercelLink(filepath.Join(dir, ".vercel", "project.json"))
	return p
}

func readPackageJSON(path string) (*packageJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

var (
	sshRemote   = regexp.MustCompile(`^git@[^:]+:([^/]+)/(.+?)(\.git)?$`)
	httpsRemote = regexp.MustCompile(`^(?:https?|ssh|git)://(?:[^@/]+@)?[^/]+/([^/]+)/(.+?)(\.git)?/?$`)
)

// RepoSlug extracts owner/repo from a git remote URL in scp-like or URL form.
func RepoSlug(remote string) string {
	remote = strings.TrimSpace(remote)
	for _, re := range []*regexp.Regexp{sshRemote, httpsRemote} {
		if m := re.FindStringSubmatch(remote); m != nil {
			return m[1] + "/" + m[2]
		}
	}
	return ""
}

// originURL reads the url of remote "origin" from a git config file.
func originURL(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	inOrigin := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "[") {
			inOrigin = line == `[remote "origin"]`
			continue
		}
		if !inOrigin {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if ok && strings.TrimSpace(key) == "url" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func vercelLink(path string) (projectID, orgID string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ""
	}
	var link struct {
		ProjectID string `json:"projectId"`
		OrgID     string `json:"orgId"`
	}
	if err := json.Unmarshal(data, &link); err != nil {
		return "", ""
	}
	return link.ProjectID, link.OrgID
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist) && err == nil
}
