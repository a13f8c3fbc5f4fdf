/*
errors.go - Error taxonomy for the leave service

PURPOSE:
  Every failure the service can report belongs to exactly one Kind.
  Callers (the HTTP layer, cmd/server) branch on the kind, never on
  message text.

KINDS:
  validation     Bad input shape or semantics. Client-correctable.
  conflict       Overlapping approved leave or an illegal transition.
  not_found      Transition target does not exist.
  store          Durable store unavailable or query failure. Opaque.
  configuration  Fatal at startup only.

USAGE:
  Sentinels work with errors.Is, structured errors with errors.As:

    if errors.Is(err, leave.ErrConflict) { ... }

    var verr *leave.ValidationError
    if errors.As(err, &verr) { fmt.Println(verr.Rule) }

SEE ALSO:
  - validator.go: Produces ValidationError
  - service.go: Produces ConflictError, NotFoundError, StoreError
  - api/handlers.go: Maps kinds to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("conflict")
	ErrNotFound      = errors.New("leave not found")
	ErrStore         = errors.New("store failure")
	ErrConfiguration = errors.New("configuration error")
)

// Kind is the machine-distinguishable error category.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindStore         Kind = "store"
	KindConfiguration Kind = "configuration"
	KindUnknown       Kind = "unknown"
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the first rule a submission failed.
type ValidationError struct {
	Rule    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports an overlap with approved leave, or a transition
// out of a terminal state.
type ConflictError struct {
	EmpID      string
	ExistingID int64
	Message    string
}

func (e *ConflictError) Error() string { return e.Message }
func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports a missing leave record.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string { return "Leave not found" }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps a repository failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfiguration}
	}
	return []error{ErrConfiguration, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf classifies err. Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrStore):
		return KindStore
	}
	return KindUnknown
}

// IsClientError returns true if the caller can correct the request.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindConflict, KindNotFound:
		return true
	}
	return false
}

func invalid(rule, message string) *ValidationError {
	return &ValidationError{Rule: rule, Message: message}
}
