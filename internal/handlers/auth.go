package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tillworks/tillguard/internal/auth"
	"github.com/tillworks/tillguard/internal/models"
	"github.com/tillworks/tillguard/internal/services"
	pkghttp "github.com/tillworks/tillguard/pkg/http"
)

// AuthServiceInterface defines the login-flow surface the handler needs
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	EvaluatePassword(password string, hints *models.IdentityHints) models.PasswordEvaluation
	ChangePassword(ctx context.Context, email, currentPassword, newPassword, ipAddress string) (models.PasswordEvaluation, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	csrf     *auth.CSRFTokenManager
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, csrf *auth.CSRFTokenManager, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{service: service, csrf: csrf, ipConfig: ipConfig}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// EvaluatePasswordRequest carries a candidate password plus the optional
// identity hints the password-change form knows about.
type EvaluatePasswordRequest struct {
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	resp, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, models.ErrAccountLocked), errors.Is(err, models.ErrRateLimitExceeded):
			pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// EvaluatePassword scores a candidate password for the password-change form.
func (h *AuthHandler) EvaluatePassword(w http.ResponseWriter, r *http.Request) {
	var req EvaluatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	hints := &models.IdentityHints{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		EmailLocalPart: localPart(req.Email),
	}

	eval := h.service.EvaluatePassword(req.Password, hints)
	pkghttp.WriteJSON(w, http.StatusOK, eval)
}

// ChangePassword handles a password change for an authenticated account.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	eval, err := h.service.ChangePassword(r.Context(), req.Email, req.CurrentPassword, req.NewPassword, ipAddress)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		case errors.Is(err, models.ErrBadRequest):
			// Weak replacement password: return the evaluation so the form
			// can show the violations.
			pkghttp.WriteJSON(w, http.StatusUnprocessableEntity, eval)
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, eval)
}

// CSRFToken issues a CSRF token bound to the authenticated user.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	token, err := h.csrf.IssueToken(claims.UserID)
	if err != nil {
		// Entropy failure is fatal for token generation; never degrade.
		pkghttp.WriteInternalError(w, "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "csrf_token",
		Value:    token,
		Path:     "/",
		HttpOnly: false, // double-submit: the SPA reads and echoes it
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func localPart(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return ""
}
