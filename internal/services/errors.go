// Package services defines the business logic for score submission, ranking
// and moderation. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"fmt"
	"time"
)

// Score-related errors.
var (
	// ErrInvalidScore is returned when a submitted value is missing, not a
	// finite number, or not strictly positive.
	ErrInvalidScore = errors.New("score must be a positive number of milliseconds")

	// ErrRateLimited is returned when the identity's cooldown has not elapsed.
	// The concrete error is a *RateLimitError carrying the remaining wait.
	ErrRateLimited = errors.New("submission cooldown has not elapsed")

	// ErrStoreUnavailable wraps persistence and cooldown backend failures.
	// It is transient from the caller's point of view; nothing is retried here.
	ErrStoreUnavailable = errors.New("score store unavailable")

	// ErrScoreNotFound indicates that a review targeted an unknown score id.
	ErrScoreNotFound = errors.New("score not found")

	// ErrInvalidAction is returned when a review action is not approve or deny.
	ErrInvalidAction = errors.New("action must be approve or deny")
)

// User-related errors.
var (
	// ErrUserNotFound indicates that no profile matches the lookup.
	ErrUserNotFound = errors.New("user not found")
)

// RateLimitError reports a cooldown rejection together with the time left
// until the identity may submit again. It matches ErrRateLimited with
// errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry in %s", ErrRateLimited, e.RetryAfter.Round(time.Millisecond))
}

// Unwrap exposes ErrRateLimited.
func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// unavailable wraps a backend failure as ErrStoreUnavailable, keeping the
// original message for logs.
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
