package project

import (
	"path/filepath"
	"strings"
)

// Hosts that contribute identity keys.
const (
	HostGitHub = "github"
	HostVercel = "vercel"
)

// PathKey is the identity key of a project found on the local filesystem.
func PathKey(path string) string {
	return filepath.Clean(path)
}

// HostedKey is the identity key of a hosted repository, e.g. github:owner/repo.
// Slugs compare case-insensitively on every supported host.
func HostedKey(host, slug string) string {
	return host + ":" + strings.ToLower(strings.Trim(slug, "/"))
}

// PlaceholderKey names a deployment-only project with no repository link.
func PlaceholderKey(host, name string) string {
	return host + ":" + name
}

// HostedPrefix is the key prefix shared by every hosted key of host.
func HostedPrefix(host string) string {
	return host + ":"
}
