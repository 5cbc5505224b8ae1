package models

import "time"

// RateLimitResult is the outcome of a single rate-limit check.
// A denial is a normal, expected result surfaced for user-facing messaging,
// never an error.
type RateLimitResult struct {
	Allowed           bool       `json:"allowed"`
	RemainingAttempts int        `json:"remaining_attempts"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`

	// LockoutTriggered is true only on the check that transitioned the
	// identifier into the locked state, so the login flow can record a
	// single account_locked event per lockout.
	LockoutTriggered bool `json:"-"`
}
