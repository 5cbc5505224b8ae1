package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillworks/tillguard/internal/auth"
	"github.com/tillworks/tillguard/internal/handlers"
	"github.com/tillworks/tillguard/internal/models"
	"github.com/tillworks/tillguard/internal/services"
	pkghttp "github.com/tillworks/tillguard/pkg/http"
)

// stubAuthService returns canned results so handler mapping can be tested
// in isolation.
type stubAuthService struct {
	loginResp  *services.AuthResponse
	loginErr   error
	eval       models.PasswordEvaluation
	changeEval models.PasswordEvaluation
	changeErr  error

	lastEmail     string
	lastUserAgent string
}

func (s *stubAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
	s.lastEmail = email
	s.lastUserAgent = userAgent
	return s.loginResp, s.loginErr
}

func (s *stubAuthService) EvaluatePassword(password string, hints *models.IdentityHints) models.PasswordEvaluation {
	return s.eval
}

func (s *stubAuthService) ChangePassword(ctx context.Context, email, currentPassword, newPassword, ipAddress string) (models.PasswordEvaluation, error) {
	return s.changeEval, s.changeErr
}

func newAuthHandler(stub *stubAuthService) (*handlers.AuthHandler, *auth.CSRFTokenManager) {
	csrf := auth.NewCSRFTokenManager()
	return handlers.NewAuthHandler(stub, csrf, &pkghttp.IPConfig{}), csrf
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestLoginHandler_Success(t *testing.T) {
	stub := &stubAuthService{
		loginResp: &services.AuthResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			User:         &models.User{ID: "user-1", Email: "alice@example.com"},
		},
	}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	rec := postJSON(t, handler.Login, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse!7Q",
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp services.AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "alice@example.com", stub.lastEmail)
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{loginErr: models.ErrUnauthorized}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	rec := postJSON(t, handler.Login, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_AccountLocked(t *testing.T) {
	stub := &stubAuthService{loginErr: models.ErrAccountLocked}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	rec := postJSON(t, handler.Login, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "whatever",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginHandler_ValidationErrors(t *testing.T) {
	stub := &stubAuthService{}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing email", map[string]string{"password": "x"}},
		{"missing password", map[string]string{"email": "alice@example.com"}},
		{"malformed email", map[string]string{"email": "not-an-email", "password": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler.Login, "/auth/login", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginHandler_MalformedBody(t *testing.T) {
	stub := &stubAuthService{}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEvaluatePasswordHandler(t *testing.T) {
	stub := &stubAuthService{
		eval: models.PasswordEvaluation{
			Score:   85,
			IsValid: true,
		},
	}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	rec := postJSON(t, handler.EvaluatePassword, "/auth/password/evaluate", map[string]string{
		"password": "MyS3cure!Pass",
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var eval models.PasswordEvaluation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&eval))
	assert.Equal(t, 85, eval.Score)
	assert.True(t, eval.IsValid)
}

func TestChangePasswordHandler_WeakReplacement(t *testing.T) {
	stub := &stubAuthService{
		changeEval: models.PasswordEvaluation{
			Score:   10,
			IsValid: false,
			Errors:  []string{"must be at least 8 characters"},
		},
		changeErr: models.ErrBadRequest,
	}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	rec := postJSON(t, handler.ChangePassword, "/auth/password/reset", map[string]string{
		"email":            "alice@example.com",
		"current_password": "correct horse!7Q",
		"new_password":     "weak",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var eval models.PasswordEvaluation
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&eval))
	assert.False(t, eval.IsValid)
	assert.NotEmpty(t, eval.Errors)
}

func TestChangePasswordHandler_WrongCurrentPassword(t *testing.T) {
	stub := &stubAuthService{changeErr: models.ErrUnauthorized}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	rec := postJSON(t, handler.ChangePassword, "/auth/password/reset", map[string]string{
		"email":            "alice@example.com",
		"current_password": "wrong",
		"new_password":     "Fresh&Start9xy",
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCSRFTokenHandler(t *testing.T) {
	stub := &stubAuthService{}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	tm := auth.NewTokenManager("test-secret-32-characters-long!!", 15*time.Minute, 24*time.Hour)
	token, err := tm.GenerateAccessToken("user-1", "alice@example.com", "user")
	require.NoError(t, err)

	protected := auth.Middleware(tm)(http.HandlerFunc(handler.CSRFToken))
	req := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Regexp(t, `^[0-9a-f]{64}$`, body["csrf_token"])
	assert.True(t, csrf.ValidateToken(body["csrf_token"], "user-1"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "csrf_token", cookies[0].Name)
	assert.Equal(t, body["csrf_token"], cookies[0].Value)
}

func TestCSRFTokenHandler_Unauthenticated(t *testing.T) {
	stub := &stubAuthService{}
	handler, csrf := newAuthHandler(stub)
	defer csrf.Stop()

	req := httptest.NewRequest(http.MethodGet, "/auth/csrf", nil)
	rec := httptest.NewRecorder()
	handler.CSRFToken(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
