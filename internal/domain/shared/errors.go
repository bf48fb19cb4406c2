package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// This lets callers write errors.Is(err, shared.ErrNotFound) against
// errors that carry a more specific message.
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

// WrapDomainError creates a domain error that keeps the triggering cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error codes shared by every ledger operation
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeOverAllocation      = "OVER_ALLOCATION"
	CodeAlreadyRefunded     = "ALREADY_REFUNDED"
	CodeAlreadyDeleted      = "ALREADY_DELETED"
	CodeClosed              = "CLOSED"
	CodeInvalidState        = "INVALID_STATE"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodePersistenceFailure  = "PERSISTENCE_FAILURE"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidAmount       = NewDomainError(CodeInvalidAmount, "Invalid amount")
	ErrOverAllocation      = NewDomainError(CodeOverAllocation, "Allocation exceeds available amount")
	ErrAlreadyRefunded     = NewDomainError(CodeAlreadyRefunded, "Payment has already been refunded")
	ErrAlreadyDeleted      = NewDomainError(CodeAlreadyDeleted, "Payment has already been deleted")
	ErrClosed              = NewDomainError(CodeClosed, "Record is closed for the financial year")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process, retry the operation")
	ErrPersistenceFailure  = NewDomainError(CodePersistenceFailure, "Storage operation failed")
)

// NewPersistenceFailure wraps a store error that is fatal to the operation
func NewPersistenceFailure(cause error) *DomainError {
	return WrapDomainError(CodePersistenceFailure, "Storage operation failed", cause)
}

// NewConcurrencyConflict wraps a store error caused by a serialization failure
func NewConcurrencyConflict(cause error) *DomainError {
	return WrapDomainError(CodeConcurrencyConflict, "Resource was modified by another process, retry the operation", cause)
}

// ErrorCode extracts the domain error code from err, or "" if err is not a DomainError
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// IsRetryable reports whether the caller may safely retry the whole operation
func IsRetryable(err error) bool {
	return ErrorCode(err) == CodeConcurrencyConflict
}
