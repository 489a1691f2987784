package mcp

import (
	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/ingest"
)

type NoParams struct{}

type ListProjectsParams struct {
	Status     string `json:"status,omitempty" jsonschema:"active or redundant"`
	Provenance string `json:"provenance,omitempty" jsonschema:"scanner or hosted"`
	PinnedOnly bool   `json:"pinned_only,omitempty" jsonschema:"only return pinned projects"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of projects to return"`
}

type ProjectIDParams struct {
	ID string `json:"id" jsonschema:"catalog project id"`
}

type ProjectActivityParams struct {
	ID   string `json:"id" jsonschema:"catalog project id"`
	Type string `json:"type,omitempty" jsonschema:"commit or deployment, default commit"`
	Days int    `json:"days,omitempty" jsonschema:"trailing window in days"`
}

type GlobalActivityParams struct {
	Type string `json:"type,omitempty" jsonschema:"commit or deployment, default commit"`
	Days int    `json:"days,omitempty" jsonschema:"trailing window in days"`
}

type SetDisplayNameParams struct {
	ID          string `json:"id" jsonschema:"catalog project id"`
	DisplayName string `json:"display_name" jsonschema:"display name override; empty clears it"`
}

type SetStageParams struct {
	ID    string `json:"id" jsonschema:"catalog project id"`
	Stage string `json:"stage" jsonschema:"final, beta, alpha or indev"`
}

type SetStatusParams struct {
	ID     string `json:"id" jsonschema:"catalog project id"`
	Status string `json:"status" jsonschema:"active or redundant"`
}

type HeatmapResult struct {
	ProjectID string           `json:"project_id,omitempty"`
	Type      activity.Type    `json:"type"`
	Days      int              `json:"days"`
	Total     int              `json:"total"`
	Points    []activity.Point `json:"points"`
}

type SyncAllResult struct {
	Summaries []ingest.Summary `json:"summaries"`
	Errors    []string         `json:"errors,omitempty"`
}
