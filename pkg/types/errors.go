package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind represents different categories of errors
type ErrorKind string

const (
	// ErrorKindUnauthenticated means no principal could be resolved for the caller.
	ErrorKindUnauthenticated ErrorKind = "unauthenticated"
	// ErrorKindForbidden means a resolved principal was denied by policy.
	ErrorKindForbidden ErrorKind = "forbidden"
	// ErrorKindNotFound covers both an absent row and a denied read: callers
	// must not be able to distinguish the two.
	ErrorKindNotFound ErrorKind = "not_found"
	// ErrorKindConflict is a state-invariant violation, e.g. an update against
	// a locked clinical note. Surfaced distinctly from Forbidden.
	ErrorKindConflict ErrorKind = "conflict"
	// ErrorKindValidation is a malformed or restricted field-level write.
	ErrorKindValidation ErrorKind = "validation_failed"
	// ErrorKindInternal is any other failure.
	ErrorKindInternal ErrorKind = "internal"
)

// DomainError represents a structured error carrying its category.
type DomainError struct {
	Kind    ErrorKind              `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause error
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// NewUnauthenticatedError creates an error for an unresolvable principal.
func NewUnauthenticatedError(message string) *DomainError {
	return &DomainError{Kind: ErrorKindUnauthenticated, Message: message}
}

// NewForbiddenError creates an error for a policy denial.
func NewForbiddenError(message string) *DomainError {
	return &DomainError{Kind: ErrorKindForbidden, Message: message}
}

// NewNotFoundError creates an error for an absent or invisible row.
func NewNotFoundError(message string) *DomainError {
	return &DomainError{Kind: ErrorKindNotFound, Message: message}
}

// NewConflictError creates an error for a state-invariant violation.
func NewConflictError(message string) *DomainError {
	return &DomainError{Kind: ErrorKindConflict, Message: message}
}

// NewValidationError creates an error for a restricted or malformed write.
func NewValidationError(message string, details map[string]interface{}) *DomainError {
	return &DomainError{Kind: ErrorKindValidation, Message: message, Details: details}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(message string, cause error) *DomainError {
	return &DomainError{Kind: ErrorKindInternal, Message: message, Cause: cause}
}

// KindOf returns the error's kind, or ErrorKindInternal for plain errors.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrorKindInternal
}

// IsKind reports whether the error carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the HTTP status code handlers should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrorKindUnauthenticated:
		return http.StatusUnauthorized
	case ErrorKindForbidden:
		return http.StatusForbidden
	case ErrorKindNotFound:
		return http.StatusNotFound
	case ErrorKindConflict:
		return http.StatusConflict
	case ErrorKindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
