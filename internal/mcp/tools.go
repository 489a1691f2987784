package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/metrics"
)

// handler dispatches tool calls to domain services.
type handler struct {
	catalog     CatalogService
	activity    ActivityService
	sync        SyncService
	defaultDays int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func newHandler(cfg Config) *handler {
	return &handler{
		catalog:     cfg.Services.Catalog,
		activity:    cfg.Services.Activity,
		sync:        cfg.Services.Sync,
		defaultDays: cfg.DefaultDays,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

func registerTools(server *sdkmcp.Server, h *handler) {
	// Sync runs
	addTool(server, h, "sync_github", "Sync repositories and recent commits from GitHub into the catalog", h.syncGitHub)
	addTool(server, h, "sync_vercel", "Sync Vercel projects and recent deployments into the catalog", h.syncVercel)
	addTool(server, h, "ingest_manifests", "Scan the configured local roots and classify every project found", h.ingestManifests)
	addTool(server, h, "refresh_activity", "Re-fetch commits and deployments for every catalogued project with a hosted link", h.refreshActivity)
	addTool(server, h, "sync_all", "Run manifest ingest, GitHub sync and Vercel sync in turn", h.syncAll)

	// Browsing
	addTool(server, h, "list_projects", "List catalogued projects, pinned first", h.listProjects)
	addTool(server, h, "get_project", "Get one project with its tech-stack snapshot", h.getProject)
	addTool(server, h, "project_activity", "Daily activity heatmap for one project", h.projectActivity)
	addTool(server, h, "global_activity", "Daily activity heatmap summed over every project", h.globalActivity)
	addTool(server, h, "catalog_breakdown", "Count projects by framework, database, language and category", h.breakdown)

	// User edits
	addTool(server, h, "toggle_pin", "Pin or unpin a project", h.togglePin)
	addTool(server, h, "set_display_name", "Set or clear a project's display name", h.setDisplayName)
	addTool(server, h, "set_stage", "Set a project's maturity stage", h.setStage)
	addTool(server, h, "set_status", "Mark a project active or redundant", h.setStatus)
}

func addTool[In any](server *sdkmcp.Server, h *handler, name, description string, fn func(context.Context, In) (any, error)) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			out, err := fn(ctx, in)
			h.metrics.ObserveTool(name, err != nil)
			if err != nil {
				apiErr := MapError(err)
				h.logger.Warn("tool call failed", "tool", name, "code", apiErr.Code, "error", err)
				return errorResult(apiErr), nil, nil
			}
			res, err := jsonResult(out)
			if err != nil {
				return nil, nil, err
			}
			return res, nil, nil
		})
}

func jsonResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(apiErr *APIError) *sdkmcp.CallToolResult {
	data, err := json.Marshal(map[string]*APIError{"error": apiErr})
	if err != nil {
		data = []byte(apiErr.Error())
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}

func (h *handler) syncGitHub(ctx context.Context, _ NoParams) (any, error) {
	return h.sync.SyncGitHub(ctx)
}

func (h *handler) syncVercel(ctx context.Context, _ NoParams) (any, error) {
	return h.sync.SyncVercel(ctx)
}

func (h *handler) ingestManifests(ctx context.Context, _ NoParams) (any, error) {
	return h.sync.IngestManifests(ctx)
}

func (h *handler) refreshActivity(ctx context.Context, _ NoParams) (any, error) {
	return h.sync.RefreshActivity(ctx)
}

// syncAll reports listing failures alongside the summaries instead of
// failing the call, since the other pipelines still ran.
func (h *handler) syncAll(ctx context.Context, _ NoParams) (any, error) {
	summaries, err := h.sync.SyncAll(ctx)
	res := SyncAllResult{Summaries: summaries}
	if err != nil {
		for _, e := range unwrapJoined(err) {
			res.Errors = append(res.Errors, e.Error())
		}
	}
	return res, nil
}

func (h *handler) listProjects(ctx context.Context, in ListProjectsParams) (any, error) {
	opts := project.ListOptions{PinnedOnly: in.PinnedOnly, Limit: in.Limit}
	if in.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", errInvalidArgument)
	}
	if in.Status != "" {
		st, err := project.ParseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		opts.Status = st
	}
	switch project.Provenance(in.Provenance) {
	case "":
	case project.ProvenanceScanner, project.ProvenanceHosted:
		opts.Provenance = project.Provenance(in.Provenance)
	default:
		return nil, fmt.Errorf("%w: unknown provenance %q", errInvalidArgument, in.Provenance)
	}

	records, err := h.catalog.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []project.Record{}
	}
	return map[string]any{"projects": records, "count": len(records)}, nil
}

func (h *handler) getProject(ctx context.Context, in ProjectIDParams) (any, error) {
	if in.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidArgument)
	}
	return h.catalog.Detail(ctx, in.ID)
}

func (h *handler) projectActivity(ctx context.Context, in ProjectActivityParams) (any, error) {
	if in.ID == "" {
		return nil, fmt.Errorf("%w: id is required", errInvalidArgument)
	}
	typ, days, err := h.window(in.Type, in.Days)
	if err != nil {
		return nil, err
	}
	if _, err := h.catalog.Get(ctx, in.ID); err != nil {
		return nil, err
	}
	points, err := h.activity.Heatmap(ctx, in.ID, typ, days)
	if err != nil {
		return nil, err
	}
	return heatmapResult(in.ID, typ, days, points), nil
}

func (h *handler) globalActivity(ctx context.Context, in GlobalActivityParams) (any, error) {
	typ, days, err := h.window(in.Type, in.Days)
	if err != nil {
		return nil, err
	}
	points, err := h.activity.GlobalHeatmap(ctx, typ, days)
	if err != nil {
		return nil, err
	}
	return heatmapResult("", typ, days, points), nil
}

func (h *handler) breakdown(ctx context.Context, _ NoParams) (any, error) {
	return h.catalog.Breakdown(ctx)
}

func (h *handler) togglePin(ctx context.Context, in ProjectIDParams) (any, error) {
	return h.catalog.TogglePinned(ctx, in.ID)
}

func (h *handler) setDisplayName(ctx context.Context, in SetDisplayNameParams) (any, error) {
	return h.catalog.SetDisplayName(ctx, in.ID, in.DisplayName)
}

func (h *handler) setStage(ctx context.Context, in SetStageParams) (any, error) {
	return h.catalog.SetStage(ctx, in.ID, in.Stage)
}

func (h *handler) setStatus(ctx context.Context, in SetStatusParams) (any, error) {
	return h.catalog.SetStatus(ctx, in.ID, in.Status)
}

func (h *handler) window(typ string, days int) (activity.Type, int, error) {
	if typ == "" {
		typ = string(activity.TypeCommit)
	}
	t, err := activity.ParseType(typ)
	if err != nil {
		return "", 0, err
	}
	if days == 0 {
		days = h.defaultDays
	}
	return t, days, nil
}

func heatmapResult(projectID string, typ activity.Type, days int, points []activity.Point) HeatmapResult {
	total := 0
	for _, p := range points {
		total += p.Count
	}
	return HeatmapResult{ProjectID: projectID, Type: typ, Days: days, Total: total, Points: points}
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
