package project

import (
	"fmt"
	"time"
)

// Status is the lifecycle status of a catalogued project.
type Status string

const (
	StatusActive    Status = "active"
	StatusRedundant Status = "redundant"
)

// Stage is the user-assigned maturity of a project.
type Stage string

const (
	StageFinal Stage = "final"
	StageBeta  Stage = "beta"
	StageAlpha Stage = "alpha"
	StageInDev Stage = "indev"
)

// Provenance records which collaborator first sighted a project.
type Provenance string

const (
	ProvenanceScanner Provenance = "scanner"
	ProvenanceHosted  Provenance = "hosted"
)

// Record is the single catalog entry for one project.
type Record struct {
	ID                   string     `json:"id"`
	Key                  string     `json:"identity_key"`
	Name                 string     `json:"name"`
	DisplayName          string     `json:"display_name,omitempty"`
	Status               Status     `json:"status"`
	Stage                Stage      `json:"stage"`
	Provenance           Provenance `json:"provenance"`
	RepoSlug             string     `json:"repo_slug,omitempty"`
	VercelProjectID      string     `json:"vercel_project_id,omitempty"`
	LiveURL              string     `json:"live_url,omitempty"`
	HTMLURL              string     `json:"html_url,omitempty"`
	Description          string     `json:"description,omitempty"`
	DescriptionGenerated bool       `json:"description_generated"`
	Category             string     `json:"category,omitempty"`
	Language             string     `json:"language,omitempty"`
	LastCommitAt         *time.Time `json:"last_commit_at,omitempty"`
	LastDeploymentAt     *time.Time `json:"last_deployment_at,omitempty"`
	Pinned               bool       `json:"pinned"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Title is the display name override when set, otherwise the name.
func (r Record) Title() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return r.Name
}

// ListOptions filters catalog listings.
type ListOptions struct {
	Status     Status
	Provenance Provenance
	PinnedOnly bool
	Limit      int
}

// UserPatch carries user-owned fields. Sources never write these.
type UserPatch struct {
	TogglePinned bool
	DisplayName  *string
	Stage        *Stage
	Status       *Status
}

// ParseStage validates a stage name.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageFinal, StageBeta, StageAlpha, StageInDev:
		return Stage(s), nil
	}
	return "", fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, s)
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusRedundant:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}
