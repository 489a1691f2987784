package activity

import (
	"fmt"
	"time"
)

// Type is the kind of external event.
type Type string

const (
	TypeCommit     Type = "commit"
	TypeDeployment Type = "deployment"
)

// ParseType validates an event type name.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeCommit, TypeDeployment:
		return Type(s), nil
	}
	return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, s)
}

// Metadata keys carried on events.
const (
	MetaAuthor = "author"
	MetaState  = "state"
	MetaStatus = "status"
	MetaSHA    = "sha"
	MetaUID    = "uid"
)

// Status of a day in a deployment heatmap.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusNeutral Status = "neutral"
)

// Event is one observed commit or deployment. Events are keyed by a
// deterministic ID derived from the source-native identifier.
type Event struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	Type       Type              `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	Title      string            `json:"title"`
	URL        string            `json:"url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Failed reports whether a deployment event ended in failure.
func (e Event) Failed() bool {
	return e.Type == TypeDeployment && e.Metadata[MetaStatus] == string(StatusFailed)
}

// Point is one day of a heatmap. Points are derived on read.
type Point struct {
	Date   string `json:"date"`
	Count  int    `json:"count"`
	Level  int    `json:"level"`
	Status Status `json:"status,omitempty"`
}

// ListOptions filters event listings.
type ListOptions struct {
	ProjectID string
	Type      Type
	Since     time.Time
	Limit     int
}
