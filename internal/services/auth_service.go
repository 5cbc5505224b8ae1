package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tillworks/tillguard/internal/auth"
	"github.com/tillworks/tillguard/internal/models"
	pkgauth "github.com/tillworks/tillguard/pkg/auth"
	pkglogger "github.com/tillworks/tillguard/pkg/logger"
	"github.com/tillworks/tillguard/pkg/sanitize"
)

// UserStore is the account lookup surface the login flow needs. The hosted
// backend owns the canonical data; tests and the self-contained server use
// the in-memory store.
type UserStore interface {
	GetByEmail(email string) (*models.User, error)
	UpdatePasswordHash(email, passwordHash string) error
}

// AuthService drives the login control flow: rate limiter first, then the
// credential check, with every outcome recorded in the audit log.
type AuthService struct {
	users       UserStore
	rateLimiter *RateLimitService
	passwords   *PasswordService
	audit       *AuditService
	timing      *auth.TimingDelay
	tokens      *auth.TokenManager
	email       EmailNotifier // optional, may be nil
	logger      *slog.Logger
}

// NewAuthService creates a new AuthService. email may be nil when notices
// are disabled.
func NewAuthService(
	users UserStore,
	rateLimiter *RateLimitService,
	passwords *PasswordService,
	audit *AuditService,
	timing *auth.TimingDelay,
	tokens *auth.TokenManager,
	email EmailNotifier,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:       users,
		rateLimiter: rateLimiter,
		passwords:   passwords,
		audit:       audit,
		timing:      timing,
		tokens:      tokens,
		email:       email,
		logger:      logger,
	}
}

// AuthResponse is returned after a successful login.
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// Login runs one authentication attempt for the identifier. The rate
// limiter is consulted before the credential check; all outcomes, allowed
// or not, end up in the audit log.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*AuthResponse, error) {
	start := time.Now()
	email = sanitize.EmailAddress(email)

	s.audit.Record(ctx, models.SecurityEventInput{
		Type:       models.EventLoginAttempt,
		Identifier: email,
		IPAddress:  optional(ipAddress),
		UserAgent:  optional(userAgent),
		Success:    true,
	})

	if userAgent != "" && !sanitize.IsPlausibleUserAgent(userAgent) {
		s.logger.Warn("login attempt with implausible user agent",
			slog.String("email", pkglogger.SanitizedEmail(email)))
	}

	limit := s.rateLimiter.Check(email)
	if !limit.Allowed {
		if limit.LockoutTriggered {
			s.audit.Record(ctx, models.SecurityEventInput{
				Type:       models.EventAccountLocked,
				Identifier: email,
				IPAddress:  optional(ipAddress),
				UserAgent:  optional(userAgent),
				Success:    false,
				Reason:     optional("too many failed attempts"),
			})
			s.notifyLockout(ctx, email, limit.LockedUntil)
		} else {
			s.audit.Record(ctx, models.SecurityEventInput{
				Type:       models.EventLoginFailure,
				Identifier: email,
				IPAddress:  optional(ipAddress),
				UserAgent:  optional(userAgent),
				Success:    false,
				Reason:     optional("rate_limited"),
			})
		}
		return nil, models.ErrAccountLocked
	}

	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.failLogin(ctx, start, email, ipAddress, userAgent, "invalid_credentials")
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.failLogin(ctx, start, email, ipAddress, userAgent, "invalid_credentials")
	}

	s.rateLimiter.Clear(email)
	s.audit.Record(ctx, models.SecurityEventInput{
		Type:       models.EventLoginSuccess,
		Identifier: email,
		UserID:     optional(user.ID),
		IPAddress:  optional(ipAddress),
		UserAgent:  optional(userAgent),
		Success:    true,
	})

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, user.Email, user.Role)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// EvaluatePassword scores a candidate password for the password-change
// form. Total; never fails.
func (s *AuthService) EvaluatePassword(password string, hints *models.IdentityHints) models.PasswordEvaluation {
	return s.passwords.Evaluate(password, hints)
}

// ChangePassword verifies the current credential, enforces the policy on
// the replacement, and records a password_reset event.
func (s *AuthService) ChangePassword(ctx context.Context, email, currentPassword, newPassword, ipAddress string) (models.PasswordEvaluation, error) {
	email = sanitize.EmailAddress(email)

	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.PasswordEvaluation{}, models.ErrUnauthorized
		}
		return models.PasswordEvaluation{}, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.audit.Record(ctx, models.SecurityEventInput{
			Type:       models.EventPasswordReset,
			Identifier: email,
			UserID:     optional(user.ID),
			IPAddress:  optional(ipAddress),
			Success:    false,
			Reason:     optional("invalid_credentials"),
		})
		return models.PasswordEvaluation{}, models.ErrUnauthorized
	}

	hints := &models.IdentityHints{
		FirstName:      user.Name,
		EmailLocalPart: emailLocalPart(email),
	}
	eval := s.passwords.Evaluate(newPassword, hints)
	if !eval.IsValid {
		return eval, models.ErrBadRequest
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return eval, models.ErrInternalServer
	}
	if err := s.users.UpdatePasswordHash(email, hash); err != nil {
		return eval, models.ErrInternalServer
	}

	s.audit.Record(ctx, models.SecurityEventInput{
		Type:       models.EventPasswordReset,
		Identifier: email,
		UserID:     optional(user.ID),
		IPAddress:  optional(ipAddress),
		Success:    true,
	})

	if s.email != nil {
		if err := s.email.SendPasswordChangedNotice(ctx, email); err != nil {
			s.logger.Error("failed to send password change notice", slog.Any("error", err))
		}
	}

	return eval, nil
}

// failLogin records the failure and applies the timing delay so failed
// paths take indistinguishable time.
func (s *AuthService) failLogin(ctx context.Context, start time.Time, email, ipAddress, userAgent, reason string) error {
	s.audit.Record(ctx, models.SecurityEventInput{
		Type:       models.EventLoginFailure,
		Identifier: email,
		IPAddress:  optional(ipAddress),
		UserAgent:  optional(userAgent),
		Success:    false,
		Reason:     optional(reason),
	})
	s.logger.Info("login failed", slog.String("email", pkglogger.SanitizedEmail(email)))
	s.timing.WaitFrom(start, false)
	return models.ErrUnauthorized
}

func (s *AuthService) notifyLockout(ctx context.Context, email string, lockedUntil *time.Time) {
	if s.email == nil || lockedUntil == nil {
		return
	}
	if err := s.email.SendLockoutNotice(ctx, email, *lockedUntil); err != nil {
		s.logger.Error("failed to send lockout notice", slog.Any("error", err))
	}
}

func emailLocalPart(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
