package classify

import "strings"

// Predicate tests a manifest.
type Predicate func(m Manifest) bool

// Kind distinguishes frontend framework tiers.
type Kind int

const (
	KindLibrary Kind = iota
	KindBundler
	KindMeta
	KindMobile
)

// Rule labels a manifest when Match holds. Rule lists are evaluated in order
// and the first match wins.
type Rule struct {
	Label string
	Kind  Kind
	Match Predicate
}

// Frameworks ranks meta-frameworks over mobile frameworks over bundlers over
// base UI libraries.
var Frameworks = []Rule{
	{Label: "Next.js", Kind: KindMeta, Match: anyOf(dep("next"), markerPrefix("next.config."))},
	{Label: "Nuxt", Kind: KindMeta, Match: dep("nuxt")},
	{Label: "Remix", Kind: KindMeta, Match: dep("@remix-run/react", "@remix-run/node")},
	{Label: "SvelteKit", Kind: KindMeta, Match: dep("@sveltejs/kit")},
	{Label: "SolidStart", Kind: KindMeta, Match: dep("@solidjs/start")},
	{Label: "Astro", Kind: KindMeta, Match: dep("astro")},
	{Label: "Expo", Kind: KindMobile, Match: dep("expo")},
	{Label: "React Native", Kind: KindMobile, Match: dep("react-native")},
	{Label: "Ionic", Kind: KindMobile, Match: depPrefix("@ionic/")},
	{Label: "Vite", Kind: KindBundler, Match: dep("vite")},
	{Label: "Vue", Match: dep("vue")},
	{Label: "Svelte", Match: dep("svelte")},
	{Label: "Angular", Match: dep("@angular/core")},
	{Label: "Solid", Match: dep("solid-js")},
	{Label: "Preact", Match: dep("preact")},
	{Label: "React", Match: dep("react")},
}

// Backends are server frameworks, detected independently of Frameworks.
var Backends = []Rule{
	{Label: "NestJS", Match: dep("@nestjs/core")},
	{Label: "Express", Match: dep("express")},
	{Label: "Fastify", Match: dep("fastify")},
	{Label: "Hono", Match: dep("hono")},
	{Label: "Koa", Match: dep("koa")},
	{Label: "Elysia", Match: dep("elysia")},
}

var (
	drizzle     = anyOf(dep("drizzle-orm"), markerPrefix("drizzle.config."))
	prisma      = anyOf(dep("@prisma/client", "prisma"), marker("prisma/schema.prisma"))
	libsql      = dep("@libsql/client", "@turso/client")
	neon        = dep("@neondatabase/serverless")
	planetscale = dep("@planetscale/database")
	supabaseJS  = dep("@supabase/supabase-js", "@supabase/auth-helpers-nextjs", "@supabase/ssr")
)

// Databases puts ORM and managed-client composites first, then ORMs, then
// backend-as-a-service platforms, then plain drivers.
var Databases = []Rule{
	{Label: "Drizzle + Turso", Match: allOf(drizzle, libsql)},
	{Label: "Drizzle + Neon", Match: allOf(drizzle, neon)},
	{Label: "Drizzle + PlanetScale", Match: allOf(drizzle, planetscale)},
	{Label: "Prisma + Turso", Match: allOf(prisma, dep("@prisma/adapter-libsql"))},
	{Label: "Prisma + Neon", Match: allOf(prisma, dep("@prisma/adapter-neon"))},
	{Label: "Prisma + PlanetScale", Match: allOf(prisma, dep("@prisma/adapter-planetscale"))},
	{Label: "Prisma", Match: prisma},
	{Label: "Drizzle ORM", Match: drizzle},
	{Label: "Supabase", Match: supabaseJS},
	{Label: "Convex", Match: anyOf(dep("convex"), marker("convex.json"))},
	{Label: "Firebase", Match: dep("firebase", "firebase-admin")},
	{Label: "PocketBase", Match: anyOf(dep("pocketbase"), marker("pb_data"))},
	{Label: "Turso", Match: libsql},
	{Label: "Neon", Match: neon},
	{Label: "PlanetScale", Match: planetscale},
	{Label: "MongoDB", Match: dep("mongoose", "mongodb")},
	{Label: "PostgreSQL", Match: dep("pg", "postgres")},
	{Label: "MySQL", Match: dep("mysql2", "mysql")},
	{Label: "SQLite", Match: dep("better-sqlite3", "sqlite3")},
	{Label: "Redis", Match: dep("ioredis", "redis")},
}

// AuthProviders ranks dedicated auth libraries over generic session handling.
var AuthProviders = []Rule{
	{Label: "NextAuth", Match: dep("next-auth", "@auth/core")},
	{Label: "Clerk", Match: depPrefix("@clerk/")},
	{Label: "Lucia", Match: dep("lucia", "lucia-auth")},
	{Label: "Better Auth", Match: dep("better-auth")},
	{Label: "Auth0", Match: depPrefix("@auth0/")},
	{Label: "Kinde", Match: depPrefix("@kinde-oss/")},
	{Label: "Supabase Auth", Match: supabaseJS},
	{Label: "Passport", Match: dep("passport")},
	{Label: "iron-session", Match: dep("iron-session")},
	{Label: "express-session", Match: dep("express-session")},
}

// TagRules are independent; every matching label is a tag.
var TagRules = []Rule{
	{Label: "shadcn/ui", Match: anyOf(depPrefix("@radix-ui/"), depContains("shadcn"), marker("components.json"))},
	{Label: "Material UI", Match: depPrefix("@mui/")},
	{Label: "Chakra UI", Match: depPrefix("@chakra-ui/")},
	{Label: "Tailwind", Match: anyOf(dep("tailwindcss"), markerPrefix("tailwind.config."))},
	{Label: "styled-components", Match: dep("styled-components")},
	{Label: "tRPC", Match: dep("@trpc/server", "@trpc/client", "trpc")},
	{Label: "GraphQL", Match: dep("graphql", "@apollo/client", "@apollo/server", "urql")},
	{Label: "React Query", Match: dep("@tanstack/react-query", "react-query")},
	{Label: "SWR", Match: dep("swr")},
	{Label: "Zustand", Match: dep("zustand")},
	{Label: "Redux", Match: dep("redux", "@reduxjs/toolkit")},
	{Label: "Jotai", Match: dep("jotai")},
	{Label: "Recoil", Match: dep("recoil")},
	{Label: "Vitest", Match: dep("vitest")},
	{Label: "Jest", Match: dep("jest")},
	{Label: "Playwright", Match: dep("@playwright/test")},
	{Label: "Cypress", Match: dep("cypress")},
	{Label: "TypeScript", Match: dep("typescript")},
	{Label: "CLI", Match: dep("commander", "yargs", "@oclif/core", "cac", "meow")},
}

// First returns the label of the first rule matching m.
func First(rules []Rule, m Manifest) string {
	for _, r := range rules {
		if r.Match(m) {
			return r.Label
		}
	}
	return ""
}

// FrameworkKind reports the tier of a frontend framework label.
func FrameworkKind(label string) (Kind, bool) {
	for _, r := range Frameworks {
		if strings.EqualFold(r.Label, label) {
			return r.Kind, true
		}
	}
	return KindLibrary, false
}

// IsServerFramework reports whether label names a known backend framework.
func IsServerFramework(label string) bool {
	for _, r := range Backends {
		if strings.EqualFold(r.Label, label) {
			return true
		}
	}
	return false
}

func dep(names ...string) Predicate {
	return func(m Manifest) bool {
		for _, n := range names {
			if m.Has(n) {
				return true
			}
		}
		return false
	}
}

func depPrefix(prefix string) Predicate {
	return func(m Manifest) bool {
		for name := range m.Dependencies {
			if strings.HasPrefix(name, prefix) {
				return true
			}
		}
		return false
	}
}

func depContains(sub string) Predicate {
	return func(m Manifest) bool {
		for name := range m.Dependencies {
			if strings.Contains(name, sub) {
				return true
			}
		}
		return false
	}
}

func marker(names ...string) Predicate {
	return func(m Manifest) bool {
		for _, n := range names {
			if m.Markers[n] {
				return true
			}
		}
		return false
	}
}

func markerPrefix(prefix string) Predicate {
	return func(m Manifest) bool {
		for name, ok := range m.Markers {
			if ok && strings.HasPrefix(name, prefix) {
				return true
			}
		}
		return false
	}
}

func allOf(ps ...Predicate) Predicate {
	return func(m Manifest) bool {
		for _, p := range ps {
			if !p(m) {
				return false
			}
		}
		return true
	}
}

func anyOf(ps ...Predicate) Predicate {
	return func(m Manifest) bool {
		for _, p := range ps {
			if p(m) {
				return true
			}
		}
		return false
	}
}
