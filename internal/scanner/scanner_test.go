package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/appcatalog/internal/domain/classify"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFind_StopsAtProjectAndSkipsExcluded(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "site", "package.json"), `{}`)
	writeFile(t, filepath.Join(root, "site", "packages", "inner", "package.json"), `{}`)
	writeFile(t, filepath.Join(root, "group", "api", "package.json"), `{}`)
	writeFile(t, filepath.Join(root, "node_modules", "react", "package.json"), `{}`)
	writeFile(t, filepath.Join(root, ".cache", "x", "package.json"), `{}`)

	dirs, err := Find(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "group", "api"),
		filepath.Join(root, "site"),
	}, dirs)
}

func TestDetect_ReadsManifestMarkersAndLinks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shop")
	writeFile(t, filepath.Join(dir, "package.json"), `{
		"name": "shop-web",
		"dependencies": {"next": "14.1.0", "react": "18.2.0"},
		"devDependencies": {"prisma": "5.0.0"}
	}`)
	writeFile(t, filepath.Join(dir, "prisma", "schema.prisma"), "")
	writeFile(t, filepath.Join(dir, "pnpm-lock.yaml"), "")
	writeFile(t, filepath.Join(dir, ".git", "config"), `[core]
	bare = false
[remote "origin"]
	url = git@github.com:acme/shop.git
	fetch = +refs/heads/*:refs/remotes/origin/*
`)
	writeFile(t, filepath.Join(dir, ".vercel", "project.json"), `{"projectId":"prj_1","orgId":"team_1"}`)
	writeFile(t, filepath.Join(dir, "catalog.yaml"), "database: Postgres\ntags: [Internal]\n")

	p := New("", nil).Detect(dir)
	require.NoError(t, p.Err)
	assert.Equal(t, "shop-web", p.Name)
	assert.Equal(t, "pnpm", p.PackageManager)
	assert.Equal(t, "acme/shop", p.RepoSlug)
	assert.Equal(t, "prj_1", p.VercelProjectID)
	assert.Equal(t, "team_1", p.VercelOrgID)
	assert.True(t, p.Manifest.Has("next"))
	assert.True(t, p.Manifest.Has("prisma"))
	assert.True(t, p.Manifest.Markers["prisma/schema.prisma"])
	require.NotNil(t, p.Manifest.Override)
	require.NotNil(t, p.Manifest.Override.Database)
	assert.Equal(t, "Postgres", *p.Manifest.Override.Database)
	assert.Equal(t, []string{"Internal"}, p.Manifest.Override.Tags)
}

func TestDetect_UnreadableManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{not json`)

	p := New("", nil).Detect(dir)
	assert.ErrorIs(t, p.Err, classify.ErrManifestUnreadable)
	assert.Equal(t, filepath.Base(dir), p.Name)
	assert.Empty(t, p.Manifest.Dependencies)
}

func TestDetect_InvalidOverrideIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"name":"x"}`)
	writeFile(t, filepath.Join(dir, "catalog.yaml"), "frontned: Vue\n")

	p := New("", nil).Detect(dir)
	require.NoError(t, p.Err)
	assert.Nil(t, p.Manifest.Override)
}

func TestRepoSlug(t *testing.T) {
	cases := map[string]string{
		"git@github.com:acme/shop.git":           "acme/shop",
		"git@github.com:acme/shop":               "acme/shop",
		"https://github.com/acme/shop.git":       "acme/shop",
		"https://github.com/acme/shop":           "acme/shop",
		"https://token@github.com/acme/shop.git": "acme/shop",
		"ssh://git@github.com/acme/shop.git":     "acme/shop",
		"/srv/git/shop.git":                      "",
	}
	for remote, want := range cases {
		assert.Equal(t, want, RepoSlug(remote), remote)
	}
}

func TestScan_MultipleRoots(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(a, "one", "package.json"), `{"name":"one"}`)
	writeFile(t, filepath.Join(b, "two", "package.json"), `{"name":"two"}`)

	projects, err := New("", nil).Scan([]string{a, b})
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "one", projects[0].Name)
	assert.Equal(t, "two", projects[1].Name)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := New("", nil).Scan([]string{filepath.Join(t.TempDir(), "absent")})
	assert.Error(t, err)
}

func TestWatcher_ReportsSettledManifestChange(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(dir, "package.json"), `{}`)

	changed := make(chan []string, 4)
	w, err := NewWatcher([]string{root}, "", func(_ context.Context, dirs []string) {
		changed <- dirs
	}, nil)
	require.NoError(t, err)
	w.debounceDur = 20 * time.Millisecond
	w.tick = 10 * time.Millisecond
	assert.Equal(t, []string{dir}, w.Watched())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, filepath.Join(dir, "README.md"), "ignored")
	writeFile(t, filepath.Join(dir, "package.json"), `{"dependencies":{"vue":"3"}}`)

	select {
	case dirs := <-changed:
		assert.Equal(t, []string{dir}, dirs)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_CustomOverrideAndPrismaSchema(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(dir, "package.json"), `{}`)
	writeFile(t, filepath.Join(dir, "prisma", "schema.prisma"), "")

	changed := make(chan []string, 4)
	w, err := NewWatcher([]string{root}, "meta.yaml", func(_ context.Context, dirs []string) {
		changed <- dirs
	}, nil)
	require.NoError(t, err)
	w.debounceDur = 20 * time.Millisecond
	w.tick = 10 * time.Millisecond
	assert.Equal(t, []string{dir, filepath.Join(dir, "prisma")}, w.Watched())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for _, file := range []string{"meta.yaml", filepath.Join("prisma", "schema.prisma")} {
		writeFile(t, filepath.Join(dir, file), "changed")
		select {
		case dirs := <-changed:
			assert.Equal(t, []string{dir}, dirs, file)
		case <-time.After(5 * time.Second):
			t.Fatalf("no change reported for %s", file)
		}
	}

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_RelevantUsesConfiguredOverride(t *testing.T) {
	w := &Watcher{overrideFile: "meta.yaml"}
	assert.True(t, w.relevant("meta.yaml"))
	assert.True(t, w.relevant("package.json"))
	assert.True(t, w.relevant("schema.prisma"))
	assert.False(t, w.relevant(DefaultOverrideFile))
	assert.False(t, w.relevant("README.md"))
}

func TestWatcher_Settled(t *testing.T) {
	w := &Watcher{pending: map[string]time.Time{}, debounceDur: time.Second}
	now := time.Now()
	w.pending["/a"] = now.Add(-2 * time.Second)
	w.pending["/b"] = now

	assert.Equal(t, []string{"/a"}, w.settled(now))
	assert.Len(t, w.pending, 1)
}
