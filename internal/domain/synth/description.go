package synth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type projectType struct {
	keyword string
	label   string
}

// projectTypes is matched as substrings of the lowercased name, in order.
var projectTypes = []projectType{
	{"dashboard", "Dashboard"},
	{"admin", "Admin panel"},
	{"portfolio", "Portfolio site"},
	{"landing", "Landing page"},
	{"blog", "Blog"},
	{"docs", "Documentation site"},
	{"extension", "Browser extension"},
	{"scraper", "Web scraper"},
	{"bot", "Bot"},
	{"cli", "Command-line tool"},
	{"api", "API service"},
	{"server", "Server"},
	{"website", "Website"},
}

// Describe synthesizes a description for a project that has none. It prefers
// a recognized project type, then the humanized name, each combined with the
// detected stack or, failing that, the source language.
func Describe(in Input) string {
	tech := techParts(in)
	if label := detectType(in.Name); label != "" {
		if len(tech) > 0 {
			return label + " built with " + joinList(tech)
		}
		return label
	}

	name := Humanize(in.Name)
	switch {
	case len(tech) > 0:
		return name + " built with " + joinList(tech)
	case in.Language != "":
		return name + " built with " + in.Language
	default:
		return name
	}
}

// Humanize turns a package or repo name into Title Case words:
// "@acme/my_cool-app" becomes "My Cool App".
func Humanize(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || unicode.IsSpace(r)
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func detectType(name string) string {
	lower := strings.ToLower(name)
	for _, pt := range projectTypes {
		if strings.Contains(lower, pt.keyword) {
			return pt.label
		}
	}
	return ""
}

func techParts(in Input) []string {
	var parts []string
	seen := map[string]bool{}
	for _, p := range []string{in.Frontend, in.Backend, in.Database, in.Auth} {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		parts = append(parts, p)
	}
	return parts
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
