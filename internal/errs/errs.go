// Package errs defines the error taxonomy the pipeline classifies every
// failure into, so callers can decide whether to record, retry, or abort
// without string-matching messages.
package errs

import "fmt"

// ValidationError is an expected outcome: the submitted file failed one or
// more format checks. It is recorded in the error table, never aborts a
// center's run.
type ValidationError struct {
	EntityID string
	Message  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.EntityID, e.Message)
}

// ReadFailure wraps an underlying I/O or parse error encountered while
// reading a submitted file. It is surfaced to the caller as a ValidationError
// whose message embeds the path and cause.
type ReadFailure struct {
	Path string
	Err  error
}

func (e *ReadFailure) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ReadFailure) Unwrap() error { return e.Err }

// AsValidationError converts a ReadFailure into the ValidationError a
// submitter sees in their report.
func (e *ReadFailure) AsValidationError(entityID string) *ValidationError {
	return &ValidationError{EntityID: entityID, Message: e.Error()}
}

// MissingParameter is a programmer error: a format was invoked without a
// required kwarg. Fatal, not per-file.
type MissingParameter struct {
	Name string
}

func (e *MissingParameter) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}

// SchemaMismatch is a programmer error: the reconciliation engine was asked
// to diff two frames with different column sets.
type SchemaMismatch struct {
	Detail string
}

func (e *SchemaMismatch) Error() string {
	return fmt.Sprintf("schema mismatch: %s", e.Detail)
}

// InvariantViolation covers any condition the spec declares impossible, such
// as a submission unit with more than two entities.
type InvariantViolation struct {
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Detail)
}

// PlatformTransient wraps a retryable platform-gateway failure (network
// blips, timeouts).
type PlatformTransient struct {
	Err error
}

func (e *PlatformTransient) Error() string {
	return fmt.Sprintf("transient platform error: %v", e.Err)
}

func (e *PlatformTransient) Unwrap() error { return e.Err }

// PlatformFatal wraps a non-retryable platform-gateway failure (auth,
// permission, not-found). Aborts the current center's pipeline, leaving
// state untouched.
type PlatformFatal struct {
	Err error
}

func (e *PlatformFatal) Error() string {
	return fmt.Sprintf("fatal platform error: %v", e.Err)
}

func (e *PlatformFatal) Unwrap() error { return e.Err }

// DuplicateFilename message text, set on every status/error row affected by
// duplicate-filename detection. The exact wording is load-bearing: it is the
// canonical message testable property §8.5 checks for.
const DuplicateFilename = "Duplicated filename! Files should be uploaded as new versions and the entire dataset should be uploaded."
