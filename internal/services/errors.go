// Package services defines the business logic for generation requests, votes,
// and guild policy. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrRequestNotFound indicates that the requested generation record does
	// not exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrEmptyPrompt is returned when a submission contains an empty prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a prompt exceeds the maximum configured
	// length limit.
	ErrTooLong = errors.New("prompt too long")

	// ErrInvalidVote is returned when a vote value is outside the allowed set
	// (currently -1 or 1).
	ErrInvalidVote = errors.New("vote value must be -1 or 1")

	// ErrNotVotable is returned when a vote targets a request that has not
	// produced a result.
	ErrNotVotable = errors.New("request cannot be voted on")

	// ErrForbidden is returned when a user attempts to act on another user's
	// pending request.
	ErrForbidden = errors.New("not the owner of this request")

	// ErrInvalidState is returned when an operation does not apply to the
	// request's current lifecycle state, such as completing an image request
	// that is not awaiting a prompt.
	ErrInvalidState = errors.New("request is not in a valid state for this operation")

	// ErrGuildNotFound indicates that the addressed tenant does not exist.
	ErrGuildNotFound = errors.New("guild not found")

	// ErrUnknownSetting is returned when a policy update names a field the
	// guild policy does not have.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrInvalidSetting is returned when a policy update value fails
	// validation (out of bounds, wrong type, resolution not a multiple of 64).
	ErrInvalidSetting = errors.New("invalid setting value")
)
