package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrIdentityConflict marks an ambiguous fallback match. It is logged and
	// reported on the Resolution, never returned.
	ErrIdentityConflict = errors.New("identity conflict")
)
