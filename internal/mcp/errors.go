package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/source"
)

// Error codes returned in tool error results.
const (
	CodeProjectNotFound      = "PROJECT_NOT_FOUND"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeSourceUnavailable    = "SOURCE_UNAVAILABLE"
	CodeConfigurationMissing = "CONFIGURATION_MISSING"
	CodeInternal             = "INTERNAL"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Errors it does not know are
// reported as INTERNAL with the original message.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var unavailable *source.UnavailableError
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: CodeProjectNotFound, Message: "project not found", RecoveryHint: "Call list_projects for valid ids"}
	case errors.Is(err, project.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput), errors.Is(err, errInvalidArgument):
		return &APIError{Code: CodeInvalidInput, Message: err.Error(), RecoveryHint: "Check the argument values"}
	case errors.As(err, &unavailable):
		return &APIError{
			Code:         CodeSourceUnavailable,
			Message:      err.Error(),
			Details:      map[string]any{"source": unavailable.Source, "status_code": unavailable.StatusCode},
			RecoveryHint: "Retry later; the rest of the catalog is unchanged",
		}
	case errors.Is(err, source.ErrSourceUnavailable):
		return &APIError{Code: CodeSourceUnavailable, Message: err.Error(), RecoveryHint: "Retry later; the rest of the catalog is unchanged"}
	case errors.Is(err, source.ErrConfigurationMissing):
		return &APIError{Code: CodeConfigurationMissing, Message: err.Error(), RecoveryHint: "Set GITHUB_TOKEN or VERCEL_TOKEN"}
	default:
		return &APIError{Code: CodeInternal, Message: err.Error()}
	}
}

var errInvalidArgument = errors.New("invalid argument")
