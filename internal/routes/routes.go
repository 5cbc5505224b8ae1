package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/tillworks/tillguard/internal/auth"
	"github.com/tillworks/tillguard/internal/handlers"
	"github.com/tillworks/tillguard/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	auditHandler *handlers.AuditHandler,
	tokenManager *auth.TokenManager,
	csrfManager *auth.CSRFTokenManager,
	logger *slog.Logger,
) {
	// Rate limiting config for auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public routes - no authentication required
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/auth/password/evaluate", authHandler.EvaluatePassword)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Get("/auth/csrf", authHandler.CSRFToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.CSRFProtection(csrfManager, logger))
			r.Post("/auth/password/reset", authHandler.ChangePassword)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole("admin"))
			r.Get("/admin/security-events", auditHandler.ListEvents)
		})
	})
}
