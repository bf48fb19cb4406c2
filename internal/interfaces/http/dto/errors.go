package dto

import (
	"net/http"

	"github.com/travelops/backoffice/internal/domain/shared"
)

// Transport-level error codes. Ledger failures reuse the domain codes.
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// 400 Bad Request
	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeValidation:        http.StatusBadRequest,
	shared.CodeInvalidInput:  http.StatusBadRequest,
	shared.CodeInvalidAmount: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,

	// 404 Not Found
	shared.CodeNotFound:  http.StatusNotFound,
	ErrCodeRouteNotFound: http.StatusNotFound,

	// 409 Conflict
	shared.CodeOverAllocation:      http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// 422 Unprocessable Entity
	shared.CodeAlreadyRefunded: http.StatusUnprocessableEntity,
	shared.CodeAlreadyDeleted:  http.StatusUnprocessableEntity,
	shared.CodeClosed:          http.StatusUnprocessableEntity,
	shared.CodeInvalidState:    http.StatusUnprocessableEntity,

	ErrCodeInternal:               http.StatusInternalServerError,
	shared.CodePersistenceFailure: http.StatusInternalServerError,
	ErrCodeUnavailable:            http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
