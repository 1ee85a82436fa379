package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates the caller is not authorized for the declared
// tenant (or the request failed authentication).
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input, including query text rejected by
// the statement guard.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ContextStoreError indicates the context store backing storage failed.
// The secure executor never proceeds to query execution on this error:
// running caller SQL with no verified context would mean an unfiltered view.
type ContextStoreError struct {
	Op  string // "set", "lookup", or "clear"
	Err error
}

func (e *ContextStoreError) Error() string {
	return fmt.Sprintf("context store %s: %v", e.Op, e.Err)
}

func (e *ContextStoreError) Unwrap() error { return e.Err }

// QueryError wraps an error raised while executing caller-supplied query
// text. The executor catches it only to guarantee cleanup, then re-raises
// it verbatim; Unwrap exposes the original engine error.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return fmt.Sprintf("query execution: %v", e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
