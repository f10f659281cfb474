// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package), plus the translation
// from service-layer sentinel errors to status/code pairs. These codes give
// clients a stable, machine-readable error taxonomy that supplements the
// human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, forbidden, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - Domain-specific codes (out_of_range, duplicate_for_day, already_validated,
//     too_early) carry check-in rule failures that status alone cannot convey.
//   - All error responses must include both an HTTP status and one of these codes.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wellmota/go-gym-backend/internal/search"
	"github.com/wellmota/go-gym-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeOutOfRange       = "out_of_range"
	ErrCodeDuplicateDay     = "duplicate_for_day"
	ErrCodeAlreadyValidated = "already_validated"
	ErrCodeTooEarly         = "too_early"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// serviceError maps a service-layer error to its HTTP status, stable code,
// and client-safe message. Rule violations keep their specific message;
// unrecognized errors become an opaque 500 so store internals never leak.
func serviceError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, services.ErrGymNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "gym not found"
	case errors.Is(err, services.ErrCheckInNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "check-in not found"
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "user not found"
	case errors.Is(err, services.ErrMaxDistance):
		return http.StatusUnprocessableEntity, ErrCodeOutOfRange, "user is too far from the gym"
	case errors.Is(err, services.ErrDuplicateCheckIn):
		return http.StatusConflict, ErrCodeDuplicateDay, "user already checked in today"
	case errors.Is(err, services.ErrAlreadyValidated):
		return http.StatusConflict, ErrCodeAlreadyValidated, "check-in is already validated"
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden, ErrCodeForbidden, "admin role required"
	case errors.Is(err, services.ErrEarlyValidation):
		return http.StatusUnprocessableEntity, ErrCodeTooEarly, "check-in cannot be validated yet"
	case errors.Is(err, services.ErrInvalidArgument), errors.Is(err, search.ErrInvalidParams):
		return http.StatusBadRequest, ErrCodeBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, ErrCodeInternal, "internal error"
	}
}

// failService writes the error response for a service-layer error.
func failService(c *gin.Context, err error) {
	status, code, msg := serviceError(err)
	fail(c, status, code, msg)
}
