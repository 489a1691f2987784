package project

import (
	"time"

	"github.com/google/uuid"
)

// Field is a bitmask of the mutable fields an incoming source knows about.
type Field uint16

const (
	FieldName Field = 1 << iota
	FieldStatus
	FieldRepoSlug
	FieldVercelProject
	FieldLiveURL
	FieldHTMLURL
	FieldDescription
	FieldCategory
	FieldLanguage
	FieldLastCommit
	FieldLastDeployment
)

// Has reports whether every bit of x is set.
func (f Field) Has(x Field) bool {
	return f&x == x
}

// Incoming is a record as observed by one source. Only fields named in Fields
// are written to an existing record.
type Incoming struct {
	Key        string
	Name       string
	Provenance Provenance
	Fields     Field

	Status               Status
	RepoSlug             string
	VercelProjectID      string
	LiveURL              string
	HTMLURL              string
	Description          string
	DescriptionGenerated bool
	Category             string
	Language             string
	LastCommitAt         *time.Time
	LastDeploymentAt     *time.Time

	// Secondary identity, consulted only when Key matches nothing.
	FallbackName string
	FallbackSlug string
}

// Apply merges in onto existing and returns the resulting record. A nil
// existing yields a new record. User-owned fields (pin, display name, stage)
// are never touched. A generated description does not replace a
// human-authored one.
func Apply(existing *Record, in Incoming, now time.Time) Record {
	var rec Record
	if existing == nil {
		rec = Record{
			ID:         uuid.NewString(),
			Key:        in.Key,
			Name:       in.Name,
			Status:     StatusActive,
			Stage:      StageInDev,
			Provenance: in.Provenance,
			CreatedAt:  now,
		}
		if rec.Provenance == "" {
			rec.Provenance = ProvenanceHosted
		}
	} else {
		rec = *existing
		if in.Fields.Has(FieldName) && in.Name != "" {
			rec.Name = in.Name
		}
	}
	rec.UpdatedAt = now

	f := in.Fields
	if f.Has(FieldStatus) && in.Status != "" {
		rec.Status = in.Status
	}
	if f.Has(FieldRepoSlug) {
		rec.RepoSlug = in.RepoSlug
	}
	if f.Has(FieldVercelProject) {
		rec.VercelProjectID = in.VercelProjectID
	}
	if f.Has(FieldLiveURL) {
		rec.LiveURL = in.LiveURL
	}
	if f.Has(FieldHTMLURL) {
		rec.HTMLURL = in.HTMLURL
	}
	if f.Has(FieldDescription) && !(in.DescriptionGenerated && hasHumanDescription(rec)) {
		rec.Description = in.Description
		rec.DescriptionGenerated = in.DescriptionGenerated
	}
	if f.Has(FieldCategory) {
		rec.Category = in.Category
	}
	if f.Has(FieldLanguage) {
		rec.Language = in.Language
	}
	if f.Has(FieldLastCommit) {
		rec.LastCommitAt = in.LastCommitAt
	}
	if f.Has(FieldLastDeployment) {
		rec.LastDeploymentAt = in.LastDeploymentAt
	}
	return rec
}

func hasHumanDescription(rec Record) bool {
	return rec.Description != "" && !rec.DescriptionGenerated
}
