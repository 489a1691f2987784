package source

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable matches every *UnavailableError.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrConfigurationMissing is returned by adapter constructors when no
	// credentials are configured. The adapter is skipped, not retried.
	ErrConfigurationMissing = errors.New("source configuration missing")
)

// UnavailableError is a failed call to an external host. StatusCode is zero
// when the request never produced a response.
type UnavailableError struct {
	Source     string
	StatusCode int
	Body       string
	Err        error
}

func (e *UnavailableError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API unavailable: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s API error: status %d, body: %s", e.Source, e.StatusCode, e.Body)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrSourceUnavailable
}
