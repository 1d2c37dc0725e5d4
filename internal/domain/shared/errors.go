package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes shared across bounded contexts
const (
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeStaleSnapshot     = "STALE_SNAPSHOT"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeConflict          = "CONFLICT"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeAlreadyExists     = "ALREADY_EXISTS"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields,omitempty"`
	Retryable bool     `json:"retryable,omitempty"`
	cause     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap exposes the underlying infrastructure error, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so that wrapped sentinels compare equal
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError lists the fields that failed a guard.
func NewValidationError(fields ...string) *DomainError {
	return &DomainError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("missing or invalid fields: %s", strings.Join(fields, ", ")),
		Fields:  fields,
	}
}

// NewUnauthorizedError carries the gate's deny reason as the message.
func NewUnauthorizedError(reason string) *DomainError {
	return &DomainError{
		Code:    CodeUnauthorized,
		Message: reason,
	}
}

// NewStoreUnavailableError wraps a persistence outage as a retryable error.
func NewStoreUnavailableError(cause error) *DomainError {
	return &DomainError{
		Code:      CodeStoreUnavailable,
		Message:   "case store is unavailable",
		Retryable: true,
		cause:     cause,
	}
}

// WithCause returns a copy of the error wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.cause = cause
	return &c
}

// Common domain errors
var (
	ErrUnauthenticated   = NewDomainError(CodeUnauthenticated, "No valid principal")
	ErrProfileNotFound   = NewDomainError(CodeUnauthenticated, "No profile exists for this principal")
	ErrNotFound          = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists     = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput      = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrConflict          = NewDomainError(CodeConflict, "Resource was modified by another process")
	ErrPermissionDenied  = NewDomainError(CodePermissionDenied, "Store denied access to this resource")
	ErrStaleSnapshot     = NewDomainError(CodeStaleSnapshot, "Cached snapshot could not be refreshed")
	ErrStoreUnavailable  = NewStoreUnavailableError(nil)
	ErrIllegalTransition = NewDomainError(CodeIllegalTransition, "Transition not allowed from current status")
	ErrValidation        = NewDomainError(CodeValidation, "Validation failed")
	ErrUnauthorized      = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
)

// IsRetryable reports whether err is a domain error flagged as retryable.
func IsRetryable(err error) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}
