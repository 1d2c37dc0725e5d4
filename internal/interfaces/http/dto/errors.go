package dto

import (
	"net/http"

	"github.com/scaregistry/backend/internal/domain/shared"
)

// Transport-only error codes. Domain codes come from the shared package.
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
	ErrCodeSchedulerBusy   = "SCHEDULER_BUSY"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
// STALE_SNAPSHOT has no entry; it is logged and never returned to callers.
var ErrorCodeHTTPStatus = map[string]int{
	shared.CodeUnauthenticated:   http.StatusUnauthorized,
	shared.CodeUnauthorized:      http.StatusForbidden,
	shared.CodePermissionDenied:  http.StatusForbidden,
	shared.CodeIllegalTransition: http.StatusConflict,
	shared.CodeConflict:          http.StatusConflict,
	shared.CodeAlreadyExists:     http.StatusConflict,
	shared.CodeValidation:        http.StatusUnprocessableEntity,
	shared.CodeNotFound:          http.StatusNotFound,
	shared.CodeStoreUnavailable:  http.StatusServiceUnavailable,
	shared.CodeInvalidInput:      http.StatusBadRequest,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:   http.StatusNotFound,
	ErrCodeSchedulerBusy:   http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
