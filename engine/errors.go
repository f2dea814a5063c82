/*
errors.go - Centralized error types for the accrual engine

PURPOSE:
  All engine error kinds in one place. Callers branch with errors.Is;
  the API layer maps these onto HTTP statuses.

ERROR CATEGORIES:
  1. Not-found - a referenced user/record/definition doesn't exist
  2. Validation - bad input, rejected before any state is written
  3. Conflict - a concurrent conditional update lost its race

SEE ALSO:
  - catalog package errors for content/episode/series lookups
*/
package engine

import "errors"

// =============================================================================
// SENTINEL ERRORS - use with errors.Is()
// =============================================================================

var (
	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrProgressNotFound is returned when no progress row exists for a
	// (user, unit) pair. Write paths treat this as "create".
	ErrProgressNotFound = errors.New("progress record not found")

	// ErrChallengeNotFound is returned when a referenced challenge
	// definition doesn't exist.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeProgressNotFound is returned when a user has no
	// progress row for a challenge.
	ErrChallengeProgressNotFound = errors.New("challenge progress not found")

	// ErrChallengeExpired is returned when a user tries to start a
	// challenge whose window has already closed.
	ErrChallengeExpired = errors.New("challenge window has closed")

	// ErrBadgeNotFound is returned when a referenced badge definition
	// doesn't exist.
	ErrBadgeNotFound = errors.New("badge not found")

	// ErrBadgeAwardNotFound is returned when a user has not earned a
	// badge.
	ErrBadgeAwardNotFound = errors.New("badge award not found")

	// ErrInvalidRating is returned for ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrConflict is returned when a conditional update lost to a
	// concurrent writer and bounded retries were exhausted. Safe to
	// retry; never results in a duplicate award.
	ErrConflict = errors.New("concurrent update conflict, retry")
)

// IsNotFound reports whether err is one of the engine's not-found kinds.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProgressNotFound) ||
		errors.Is(err, ErrChallengeNotFound) ||
		errors.Is(err, ErrChallengeProgressNotFound) ||
		errors.Is(err, ErrBadgeNotFound) ||
		errors.Is(err, ErrBadgeAwardNotFound)
}

// IsConflict reports whether err indicates a retryable write conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
