package services

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tillworks/tillguard/internal/models"
)

// RateLimitConfig holds the brute-force protection thresholds
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration

	// MaxDailyAttempts is carried over from the product configuration but
	// is not consulted by any transition. The daily cap was never wired in
	// the reference behavior and is kept unimplemented on purpose.
	MaxDailyAttempts int
}

// DefaultRateLimitConfig returns the production thresholds.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:      5,
		Window:           15 * time.Minute,
		Lockout:          30 * time.Minute,
		MaxDailyAttempts: 50,
	}
}

// attemptRecord is the per-identifier state. attempts never exceeds
// MaxAttempts without lockedUntil being set.
type attemptRecord struct {
	attempts    int
	windowStart time.Time
	lockedUntil *time.Time
}

// RateLimitService tracks login attempts per identifier (typically an email
// address) and locks out identifiers that exhaust their window budget.
//
// All state lives in process memory and all time-based transitions are
// evaluated lazily against the injected clock; there are no background
// timers. Check and Clear are atomic with respect to each other, so two
// concurrent attempts can never both consume the last remaining slot.
type RateLimitService struct {
	mu      sync.Mutex
	records map[string]*attemptRecord
	config  RateLimitConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewRateLimitService creates a new RateLimitService using the wall clock.
func NewRateLimitService(config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return NewRateLimitServiceWithClock(config, logger, time.Now)
}

// NewRateLimitServiceWithClock creates a RateLimitService with an explicit
// time source. Tests use this to drive window and lockout expiry.
func NewRateLimitServiceWithClock(config RateLimitConfig, logger *slog.Logger, now func() time.Time) *RateLimitService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimitService{
		records: make(map[string]*attemptRecord),
		config:  config,
		logger:  logger,
		now:     now,
	}
}

// Check records one attempt for the identifier and reports whether it may
// proceed. It never returns an error; an unknown identifier is simply fresh.
func (s *RateLimitService) Check(identifier string) models.RateLimitResult {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[identifier]
	if !exists {
		s.records[identifier] = &attemptRecord{attempts: 1, windowStart: now}
		return models.RateLimitResult{
			Allowed:           true,
			RemainingAttempts: s.config.MaxAttempts - 1,
		}
	}

	if rec.lockedUntil != nil && rec.lockedUntil.After(now) {
		return models.RateLimitResult{
			Allowed:           false,
			RemainingAttempts: 0,
			LockedUntil:       rec.lockedUntil,
		}
	}

	if now.After(rec.windowStart.Add(s.config.Window)) {
		rec.attempts = 1
		rec.windowStart = now
		rec.lockedUntil = nil
		return models.RateLimitResult{
			Allowed:           true,
			RemainingAttempts: s.config.MaxAttempts - 1,
		}
	}

	if rec.attempts >= s.config.MaxAttempts {
		until := now.Add(s.config.Lockout)
		rec.lockedUntil = &until
		s.logger.Warn("identifier locked out",
			slog.String("identifier", identifier),
			slog.Int("attempts", rec.attempts),
			slog.Time("locked_until", until))
		return models.RateLimitResult{
			Allowed:           false,
			RemainingAttempts: 0,
			LockedUntil:       &until,
			LockoutTriggered:  true,
		}
	}

	rec.attempts++
	return models.RateLimitResult{
		Allowed:           true,
		RemainingAttempts: s.config.MaxAttempts - rec.attempts,
	}
}

// Clear deletes the identifier's record. Called after a successful
// authentication so earlier failures stop counting against the account.
func (s *RateLimitService) Clear(identifier string) {
	s.mu.Lock()
	delete(s.records, identifier)
	s.mu.Unlock()
}

// TrackedIdentifiers returns the number of identifiers currently held,
// for monitoring.
func (s *RateLimitService) TrackedIdentifiers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
