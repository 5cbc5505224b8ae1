package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tillworks/tillguard/internal/middleware"
)

func applySecurityHeaders(env string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	handler := middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: env})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	rec := applySecurityHeaders("development", nil)

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestSecurityHeaders_ProductionCSPIsStrict(t *testing.T) {
	rec := applySecurityHeaders("production", nil)

	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "default-src 'self'")
	assert.Contains(t, csp, "frame-ancestors 'none'")
	assert.NotContains(t, csp, "unsafe-eval")
}

func TestSecurityHeaders_DevelopmentCSPAllowsTooling(t *testing.T) {
	rec := applySecurityHeaders("development", nil)

	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "unsafe-eval")
}

func TestSecurityHeaders_HSTSOnlyOverTLSInProduction(t *testing.T) {
	plain := applySecurityHeaders("production", nil)
	assert.Empty(t, plain.Header().Get("Strict-Transport-Security"))

	forwarded := applySecurityHeaders("production", func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "https")
	})
	assert.Contains(t, forwarded.Header().Get("Strict-Transport-Security"), "max-age=31536000")

	dev := applySecurityHeaders("development", func(r *http.Request) {
		r.Header.Set("X-Forwarded-Proto", "https")
	})
	assert.Empty(t, dev.Header().Get("Strict-Transport-Security"))
}
