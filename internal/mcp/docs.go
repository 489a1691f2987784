package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `appcatalog keeps one catalog entry per software project, merged from GitHub, Vercel and local manifests.

Core concepts:
- Project: one catalog record. Its identity key is a local path, github:owner/repo, or vercel:name.
- Snapshot: the tech stack detected from a project's manifest (frontend, backend, database, auth, tags).
- Activity: commits and deployments stored per project and aggregated into daily heatmaps on read.

Default workflow:
1) Populate: call sync_all (or sync_github / sync_vercel / ingest_manifests on their own).
2) Browse: list_projects, then get_project for the snapshot of one entry.
3) Activity: refresh_activity, then project_activity or global_activity.
4) Curate: toggle_pin, set_display_name, set_stage, set_status. Syncs never overwrite these.

Sync results report per-project failures; a failed project never aborts the rest of the run.

Docs:
- catalog://docs/index
- catalog://docs/classification
- catalog://docs/activity
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "catalog://docs/index",
		Name:        "docs_index",
		Title:       "appcatalog docs index",
		Description: "Entry point: what the tools do and what to read next.",
		Content: `# appcatalog: Agent Docs Index

## Tools

| Tool | Purpose |
|---|---|
| ` + "`sync_github`" + ` | repositories + recent commits; repos gone from the listing are marked redundant |
| ` + "`sync_vercel`" + ` | Vercel projects + recent deployments, joined to repos by their git link |
| ` + "`ingest_manifests`" + ` | scan local roots, classify package.json dependencies |
| ` + "`refresh_activity`" + ` | re-fetch commits/deployments for every linked project |
| ` + "`sync_all`" + ` | manifests, then GitHub, then Vercel |
| ` + "`list_projects`" + ` / ` + "`get_project`" + ` | browse the catalog |
| ` + "`project_activity`" + ` / ` + "`global_activity`" + ` | daily heatmaps |
| ` + "`catalog_breakdown`" + ` | counts by framework, database, language, category |
| ` + "`toggle_pin`" + ` / ` + "`set_display_name`" + ` / ` + "`set_stage`" + ` / ` + "`set_status`" + ` | curation |

## Errors

Failed calls return ` + "`{\"error\": {\"code\", \"message\", \"recovery_hint\"}}`" + ` with one of
PROJECT_NOT_FOUND, INVALID_INPUT, SOURCE_UNAVAILABLE, CONFIGURATION_MISSING, INTERNAL.

A source without credentials is skipped: its summary has ` + "`skipped: true`" + ` and a reason.

## Docs

- ` + "`catalog://docs/classification`" + ` how stacks, categories and descriptions are derived.
- ` + "`catalog://docs/activity`" + ` how heatmap levels and statuses are computed.
`,
	},
	{
		URI:         "catalog://docs/classification",
		Name:        "docs_classification",
		Title:       "Stack classification",
		Description: "How frameworks, categories and descriptions are detected.",
		Content: `# Stack classification

Each label (frontend, backend, database, auth) is the first matching rule in a fixed order, so
Next.js wins over React and Prisma wins over a raw Postgres driver. Tags collect every match.

A ` + "`catalog.yaml`" + ` in the project root overrides any label or the tag list:

` + "```yaml" + `
frontend: Astro
database: ""
tags: [cli]
` + "```" + `

## Category

The first matching rule wins:

1. A tooling, CLI or script tag: Tooling.
2. A mobile tag or a mobile framework: Mobile.
3. A frontend and a backend: Fullstack.
4. A server framework alone: Backend.
5. A meta-framework such as Next.js or Nuxt: Fullstack.
6. Any other frontend: Frontend.
7. An API or server tag: Backend.
8. Otherwise the primary language decides, falling back to Unknown.

## Description

Generated descriptions read like "Dashboard built with Next.js". A description written on the
hosting platform is never replaced by a generated one.
`,
	},
	{
		URI:         "catalog://docs/activity",
		Name:        "docs_activity",
		Title:       "Activity heatmaps",
		Description: "Heatmap windows, intensity levels and deployment status.",
		Content: `# Activity heatmaps

A heatmap has exactly one point per UTC day in the window, oldest first, including empty days.

## Levels (0-4)

| Type | 0 | 1 | 2 | 3 | 4 |
|---|---|---|---|---|---|
| commit | 0 | 1 | 2-3 | 4-6 | 7+ |
| deployment | 0 | 1 | 2 | 3-4 | 5+ |

## Deployment status

A day with any failed deployment is ` + "`failed`" + `; a day with only successful ones is
` + "`success`" + `; an empty day is ` + "`neutral`" + `. The global heatmap sums counts per day, takes the
worst status, and recomputes the level from the summed count.

Commits are stored once and never rewritten. Deployments are refreshed on every sync, since
their state moves from building to ready or error.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
