// Package apperr defines the error taxonomy shared by the workflow engine and
// the application services. Callers branch on these sentinels with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks malformed or missing required input. Reported to
	// the caller, never retried automatically.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a mission, vehicle, driver or user id that does not
	// resolve.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict marks a transition attempted against a mission that is
	// no longer in the expected status, including the losing side of a
	// concurrent-writer race. The caller must re-fetch and decide.
	ErrStateConflict = errors.New("mission no longer in expected status")

	// ErrResourceUnavailable marks a vehicle or driver that exists but is
	// already committed to another active mission.
	ErrResourceUnavailable = errors.New("resource unavailable")
)
