package models

import (
	"time"

	"github.com/google/uuid"
)

// Event types recorded by the security audit log.
// Using constants keeps event names consistent across the codebase and
// queryable from monitoring dashboards.
const (
	EventLoginAttempt  = "login_attempt"
	EventLoginSuccess  = "login_success"
	EventLoginFailure  = "login_failure"
	EventPasswordReset = "password_reset"
	EventAccountLocked = "account_locked"
)

// SecurityEvent is an immutable record of a security-relevant action.
// Events are created by the audit log and never mutated afterwards.
type SecurityEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Identifier string    `json:"identifier"`
	UserID     *string   `json:"user_id,omitempty"`
	IPAddress  *string   `json:"ip_address,omitempty"`
	UserAgent  *string   `json:"user_agent,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Success    bool      `json:"success"`
	Reason     *string   `json:"reason,omitempty"`
}

// SecurityEventInput carries the caller-supplied fields of an event.
// ID and Timestamp are stamped by the audit log at record time.
type SecurityEventInput struct {
	Type       string
	Identifier string
	UserID     *string
	IPAddress  *string
	UserAgent  *string
	Success    bool
	Reason     *string
}

// EventFilter selects events from the audit log. Nil fields are ignored;
// set fields are combined with AND semantics. Exactly these four keys are
// recognized; there is no free-form filtering.
type EventFilter struct {
	Identifier *string
	UserID     *string
	Type       *string
	Since      *time.Time
}

// Matches reports whether the event satisfies every set filter field.
func (f EventFilter) Matches(e *SecurityEvent) bool {
	if f.Identifier != nil && e.Identifier != *f.Identifier {
		return false
	}
	if f.UserID != nil && (e.UserID == nil || *e.UserID != *f.UserID) {
		return false
	}
	if f.Type != nil && e.Type != *f.Type {
		return false
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	return true
}
