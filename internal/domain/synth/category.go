// Package synth infers a category label and a human description for a
// project from its classification and raw metadata.
package synth

import (
	"strings"

	"github.com/rpggio/appcatalog/internal/domain/classify"
)

// Category is the coarse kind of a project.
type Category string

const (
	CategoryFrontend  Category = "Frontend"
	CategoryBackend   Category = "Backend"
	CategoryFullstack Category = "Fullstack"
	CategoryTooling   Category = "Tooling"
	CategoryMobile    Category = "Mobile"
	CategoryUnknown   Category = "Unknown"
)

// Input is everything category and description inference look at.
type Input struct {
	Name     string
	Language string
	Frontend string
	Backend  string
	Database string
	Auth     string
	Tags     []string
}

// FromSnapshot builds an Input from a snapshot and raw metadata.
func FromSnapshot(name, language string, snap classify.Snapshot) Input {
	return Input{
		Name:     name,
		Language: language,
		Frontend: snap.Frontend,
		Backend:  snap.Backend,
		Database: snap.Database,
		Auth:     snap.Auth,
		Tags:     snap.Tags,
	}
}

type categoryRule struct {
	category Category
	match    func(Input) bool
}

var (
	toolingTags = []string{"cli", "tooling", "script", "scripts"}
	mobileTags  = []string{"mobile", "ios", "android"}
	backendTags = []string{"api", "graphql", "rest", "server", "backend", "trpc"}
)

// categoryRules is evaluated top to bottom; the first match wins.
var categoryRules = []categoryRule{
	{CategoryTooling, func(in Input) bool { return hasTag(in, toolingTags) }},
	{CategoryMobile, func(in Input) bool { return hasTag(in, mobileTags) || frameworkIs(in, classify.KindMobile) }},
	{CategoryFullstack, func(in Input) bool { return in.Frontend != "" && in.Backend != "" }},
	{CategoryBackend, func(in Input) bool {
		return in.Frontend == "" && in.Backend != "" && classify.IsServerFramework(in.Backend)
	}},
	{CategoryFullstack, func(in Input) bool { return frameworkIs(in, classify.KindMeta) }},
	{CategoryFrontend, func(in Input) bool { return in.Frontend != "" }},
	{CategoryBackend, func(in Input) bool { return hasTag(in, backendTags) }},
}

// languageCategories is the fallback when there is no framework signal.
var languageCategories = map[string]Category{
	"html":       CategoryFrontend,
	"css":        CategoryFrontend,
	"scss":       CategoryFrontend,
	"vue":        CategoryFrontend,
	"svelte":     CategoryFrontend,
	"astro":      CategoryFrontend,
	"go":         CategoryBackend,
	"rust":       CategoryBackend,
	"java":       CategoryBackend,
	"kotlin":     CategoryBackend,
	"c#":         CategoryBackend,
	"php":        CategoryBackend,
	"ruby":       CategoryBackend,
	"elixir":     CategoryBackend,
	"scala":      CategoryBackend,
	"python":     CategoryBackend,
	"shell":      CategoryTooling,
	"powershell": CategoryTooling,
	"makefile":   CategoryTooling,
	"dockerfile": CategoryTooling,
	"nix":        CategoryTooling,
	"lua":        CategoryTooling,
	"vim script": CategoryTooling,
	"javascript": CategoryTooling,
	"typescript": CategoryTooling,
}

// InferCategory is a pure function of tags, frameworks and language.
func InferCategory(in Input) Category {
	for _, r := range categoryRules {
		if r.match(in) {
			return r.category
		}
	}
	if c, ok := languageCategories[strings.ToLower(strings.TrimSpace(in.Language))]; ok {
		return c
	}
	return CategoryUnknown
}

func hasTag(in Input, markers []string) bool {
	for _, t := range in.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		for _, m := range markers {
			if t == m {
				return true
			}
		}
	}
	return false
}

func frameworkIs(in Input, kind classify.Kind) bool {
	if in.Frontend == "" {
		return false
	}
	k, ok := classify.FrameworkKind(in.Frontend)
	return ok && k == kind
}
