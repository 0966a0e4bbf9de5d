// Package services defines the business logic for itinerary requests,
// generation, and email verification. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrInvalidRequest is returned when a submitted trip request fails
	// validation (bad dates, no travelers, missing email, etc.).
	ErrInvalidRequest = errors.New("invalid trip request")

	// ErrRequestNotFound indicates that the requested record does not exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidStatus is returned when a status-advance call names a state
	// the record cannot move into from its current state.
	ErrInvalidStatus = errors.New("invalid status transition")

	// ErrVerificationRequired is returned when a status-advance call tries
	// to attach a new email address without a valid verification code on
	// file for that address.
	ErrVerificationRequired = errors.New("email verification required")

	// ErrCodeMismatch is returned when the supplied verification code does
	// not match the one issued for the address.
	ErrCodeMismatch = errors.New("verification code mismatch")

	// ErrInvalidJSON is returned by the pipeline when the model completion
	// contains no parseable JSON object.
	ErrInvalidJSON = errors.New("completion is not valid JSON")

	// ErrSchemaViolation is returned by the pipeline when the parsed
	// completion lacks the itinerary day list.
	ErrSchemaViolation = errors.New("completion missing itinerary")
)
