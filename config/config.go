package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// API Configuration
	APIPort        string
	APIHost        string
	APIEnvironment string

	// Tenant routing
	RootDomain string
	LocalHost  string

	// Database. Empty DatabaseURL switches the API to in-memory mode.
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT & Security
	JWTSecret          string
	JWTExpirationHours int

	// CORS
	CORSAllowedOrigins []string

	// Rate Limiting
	RateLimitRequestsPerMinute int
	RateLimitBurst             int

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Vercel domain registration (production only)
	VercelToken     string
	VercelProjectID string

	// Email
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	// Sentry
	SentryDSN string

	// Logging
	LogLevel  string
	LogFormat string

	// Reconciliation cron spec for the nightly subscription sweep
	ReconcileSchedule string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		// API
		APIPort:        getEnv("API_PORT", "8080"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		APIEnvironment: getEnv("API_ENVIRONMENT", "development"),

		// Tenant routing
		RootDomain: getEnv("ROOT_DOMAIN", "showcasely.io"),
		LocalHost:  getEnv("LOCAL_HOST", "localhost:8080"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret:          getEnv("JWT_SECRET", "change-this-in-production"),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),

		// CORS
		CORSAllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGIN", "*")},

		// Rate Limiting
		RateLimitRequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 10),

		// Stripe
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		// Vercel
		VercelToken:     getEnv("VERCEL_TOKEN", ""),
		VercelProjectID: getEnv("VERCEL_PROJECT_ID", ""),

		// Email
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", "noreply@showcasely.io"),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "Showcasely"),

		// Sentry
		SentryDSN: getEnv("SENTRY_DSN", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Reconciliation: nightly at 3 AM
		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "0 3 * * *"),
	}
}

// IsProduction reports whether the API runs in production mode
func (c *Config) IsProduction() bool {
	return c.APIEnvironment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
