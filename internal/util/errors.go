package util

import "errors"

// Sentinel errors for expected, locally-handled failure modes
var (
	// ErrDuplicateSession indicates a session with the same name already exists
	ErrDuplicateSession = errors.New("duplicate session")

	// ErrDuplicateTopic indicates a topic was already consumed for a source
	ErrDuplicateTopic = errors.New("topic already used")

	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyArchived indicates the archive destination already exists
	ErrAlreadyArchived = errors.New("already archived")

	// ErrNotArchived indicates a restore was requested for a live session
	ErrNotArchived = errors.New("not archived")

	// ErrMissingArtifact indicates a session has no resolvable artifact on disk
	ErrMissingArtifact = errors.New("missing artifact")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
