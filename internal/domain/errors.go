package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateHandle       = errors.New("duplicate provider handle")
	ErrProviderUnavailable   = errors.New("provider unavailable")
	ErrMalformedNotification = errors.New("malformed notification")
	// ErrStaleEvent marks an event reporting an earlier stage than the job's
	// recorded state. Discarded, never surfaced to callers.
	ErrStaleEvent = errors.New("stale event")
	// ErrTerminalConflict marks an event that would move a job out of a
	// terminal state. Discarded per the monotonicity invariant.
	ErrTerminalConflict = errors.New("terminal state conflict")
	ErrVersionConflict  = errors.New("version conflict")
)

// ValidationError rejects a structurally invalid submission before any
// provider call is made.
type ValidationError struct {
	Field      string
	Constraint string
	Supplied   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s (got %d)", e.Field, e.Constraint, e.Supplied)
}

// EntitlementError denies access to a feature the caller's tier does not
// include. Prompt carries the localized upgrade message shown to the caller.
type EntitlementError struct {
	Reason  string
	Feature string
	Prompt  string
}

func (e *EntitlementError) Error() string {
	return fmt.Sprintf("entitlement: %s denied (%s)", e.Feature, e.Reason)
}
