// Package services defines the business logic for check-ins, gyms, and
// reports. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Resource and rule errors.
var (
	// ErrGymNotFound indicates that the referenced gym does not exist.
	ErrGymNotFound = errors.New("gym not found")

	// ErrCheckInNotFound indicates that the referenced check-in does not exist.
	ErrCheckInNotFound = errors.New("check-in not found")

	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrMaxDistance is returned when the member is outside the gym's
	// geofence at check-in time.
	ErrMaxDistance = errors.New("too far from the gym to check in")

	// ErrDuplicateCheckIn is returned when the member already has a check-in
	// on the current calendar day.
	ErrDuplicateCheckIn = errors.New("check-in already exists for today")

	// ErrAlreadyValidated is returned when validation is attempted on a
	// check-in that has already been confirmed.
	ErrAlreadyValidated = errors.New("check-in already validated")

	// ErrUnauthorized is returned when the acting user lacks the ADMIN role
	// required for validation.
	ErrUnauthorized = errors.New("user is not allowed to validate check-ins")

	// ErrEarlyValidation is returned when validation is attempted before the
	// validation window has elapsed.
	ErrEarlyValidation = errors.New("validation window has not elapsed yet")
)

// ErrInvalidArgument is the common ancestor of stateless precondition
// failures, so handlers can match the whole family with errors.Is while
// error messages stay specific.
var ErrInvalidArgument = errors.New("invalid argument")

var (
	ErrBlankUserID    = fmt.Errorf("%w: user id must not be blank", ErrInvalidArgument)
	ErrBlankGymID     = fmt.Errorf("%w: gym id must not be blank", ErrInvalidArgument)
	ErrBlankCheckInID = fmt.Errorf("%w: check-in id must not be blank", ErrInvalidArgument)

	ErrLatitudeRange  = fmt.Errorf("%w: latitude must be between -90 and 90 degrees", ErrInvalidArgument)
	ErrLongitudeRange = fmt.Errorf("%w: longitude must be between -180 and 180 degrees", ErrInvalidArgument)

	ErrTitleLength       = fmt.Errorf("%w: title must be between 2 and 100 characters", ErrInvalidArgument)
	ErrDescriptionLength = fmt.Errorf("%w: description must be at most 500 characters", ErrInvalidArgument)
	ErrInvalidPhone      = fmt.Errorf("%w: invalid phone number format", ErrInvalidArgument)

	ErrPageRange     = fmt.Errorf("%w: page must be greater than 0", ErrInvalidArgument)
	ErrPerPageRange  = fmt.Errorf("%w: per_page must be between 1 and 100", ErrInvalidArgument)
	ErrDateRange     = fmt.Errorf("%w: start date must be before end date", ErrInvalidArgument)
	ErrProbeDistance = fmt.Errorf("%w: max distance must be between 0 and 10000 meters", ErrInvalidArgument)
)
