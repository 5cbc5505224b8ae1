package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tillworks/tillguard/internal/models"
	"github.com/tillworks/tillguard/internal/services"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Security SecurityConfig
	Database DatabaseConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
}

type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// SecurityConfig gathers every tunable of the security core. All values
// default to the production constants and are fixed after Load returns.
type SecurityConfig struct {
	PasswordPolicy models.PasswordPolicy
	RateLimit      services.RateLimitConfig
	Audit          services.AuditConfig

	TimingDelayBaseMs    int
	TimingDelayRandomMs  int
	TimingDelayOnSuccess bool
}

// DatabaseConfig configures the optional audit persistence store. When
// Enabled is false the audit log is process-local only.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// EmailConfig configures lockout/password-reset notices over SES. When
// Enabled is false no email is sent.
type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	policy := models.DefaultPasswordPolicy()
	policy.MinLength = getEnvAsInt("PASSWORD_MIN_LENGTH", policy.MinLength)
	policy.MaxLength = getEnvAsInt("PASSWORD_MAX_LENGTH", policy.MaxLength)
	policy.MaxConsecutiveChars = getEnvAsInt("PASSWORD_MAX_CONSECUTIVE", policy.MaxConsecutiveChars)
	policy.MinUniqueChars = getEnvAsInt("PASSWORD_MIN_UNIQUE", policy.MinUniqueChars)

	rateLimit := services.DefaultRateLimitConfig()
	rateLimit.MaxAttempts = getEnvAsInt("RATE_LIMIT_MAX_ATTEMPTS", rateLimit.MaxAttempts)
	rateLimit.Window = getEnvAsDuration("RATE_LIMIT_WINDOW", rateLimit.Window)
	rateLimit.Lockout = getEnvAsDuration("RATE_LIMIT_LOCKOUT", rateLimit.Lockout)
	rateLimit.MaxDailyAttempts = getEnvAsInt("RATE_LIMIT_MAX_DAILY_ATTEMPTS", rateLimit.MaxDailyAttempts)

	audit := services.DefaultAuditConfig()
	audit.Capacity = getEnvAsInt("AUDIT_LOG_CAPACITY", audit.Capacity)

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: splitAndTrim(getEnv("ALLOWED_ORIGINS", "")),
			TrustedProxies: splitAndTrim(getEnv("TRUSTED_PROXIES", "")),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
		},
		Security: SecurityConfig{
			PasswordPolicy:       policy,
			RateLimit:            rateLimit,
			Audit:                audit,
			TimingDelayBaseMs:    getEnvAsInt("TIMING_DELAY_BASE_MS", 100),
			TimingDelayRandomMs:  getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
			TimingDelayOnSuccess: getEnvAsBool("TIMING_DELAY_ON_SUCCESS", false),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("AUDIT_DB_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "tillguard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns: int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
	}

	if cfg.Database.Enabled && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when AUDIT_DB_ENABLED is set")
	}
	if cfg.Email.Enabled && cfg.Email.FromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when EMAIL_ENABLED is set")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum strength for the signing secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}
	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}
	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
