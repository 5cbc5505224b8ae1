package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tillworks/tillguard/internal/auth"
	"github.com/tillworks/tillguard/internal/config"
	"github.com/tillworks/tillguard/internal/database"
	"github.com/tillworks/tillguard/internal/handlers"
	middlewareCustom "github.com/tillworks/tillguard/internal/middleware"
	"github.com/tillworks/tillguard/internal/models"
	"github.com/tillworks/tillguard/internal/repositories"
	"github.com/tillworks/tillguard/internal/routes"
	"github.com/tillworks/tillguard/internal/services"
	pkgauth "github.com/tillworks/tillguard/pkg/auth"
	pkghttp "github.com/tillworks/tillguard/pkg/http"
	pkglogger "github.com/tillworks/tillguard/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := pkglogger.New(cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Optional audit persistence. Without it the event log is process-local.
	var db *database.DB
	var auditSink services.AuditSink
	if cfg.Database.Enabled {
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		auditSink = repositories.NewSecurityEventRepository(db)
	}

	// Initialize security services
	passwordService := services.NewPasswordService(cfg.Security.PasswordPolicy)
	rateLimitService := services.NewRateLimitService(cfg.Security.RateLimit, logger)
	auditService := services.NewAuditServiceWithSink(cfg.Security.Audit, auditSink, logger)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:    cfg.Security.TimingDelayBaseMs,
		RandomDelayMs:  cfg.Security.TimingDelayRandomMs,
		DelayOnSuccess: cfg.Security.TimingDelayOnSuccess,
	})

	// Token managers
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	csrfManager := auth.NewCSRFTokenManager()
	defer csrfManager.Stop()

	// Optional lockout/password-change notices over SES
	var emailService services.EmailNotifier
	if cfg.Email.Enabled {
		ses, err := services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = ses
	}

	// Account store and auth service
	userStore := repositories.NewUserStore()
	authService := services.NewAuthService(
		userStore,
		rateLimitService,
		passwordService,
		auditService,
		timingDelay,
		tokenManager,
		emailService,
		logger,
	)

	// Bootstrap first admin user if configured
	if err := ensureAdminUser(userStore, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, csrfManager, ipConfig)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, auditHandler, tokenManager, csrfManager, logger)

	// Health check; reports database state only when persistence is enabled
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(store *repositories.UserStore, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := store.GetByEmail(adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Email:        adminEmail,
		PasswordHash: hashedPassword,
		Name:         "Admin",
		Role:         "admin",
	}
	if _, err := store.Create(admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
