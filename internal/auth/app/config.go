package app

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Issuer    string // Issuer claim for session tokens
	MFAIssuer string // Issuer shown in authenticator apps
	JWTSecret string // Required: HMAC secret for session tokens (min 32 bytes)

	SessionTTL       time.Duration // Full session lifetime (default: 8h)
	BootstrapTTL     time.Duration // Bootstrap session lifetime (default: 15m)
	PasswordResetTTL time.Duration // Reset token lifetime (default: 1h)

	RequireMFA     bool // Reject non-MFA sessions outside enrollment routes
	AllowBootstrap bool // Issue short bootstrap sessions for un-enrolled users

	CookieName   string // Session cookie name (default: azor_access)
	CookieDomain string // Optional cookie domain
	CookieSecure bool   // Secure flag on the cookie (default: true outside dev)

	DBDriver     string // sqlite or postgres (default: sqlite)
	DatabaseFile string // SQLite database file (default: ./azorauth.db)
	DatabaseURL  string // Postgres DSN, required when DBDriver=postgres

	RedisAddr     string // Optional: shared rate limit buckets when set
	RedisPassword string
	RedisDB       int

	AMQPURL string // Optional: notification events when set

	PepperFile string // Path to the password pepper file (default: ./pepper)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	AuditRetention       time.Duration // Audit event retention (default: 90 days)
}

func LoadConfig() Config {
	// A local .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	env := getEnvOrDefault("ENV", "dev")

	return Config{
		Issuer:    getEnvOrDefault("AUTH_ISSUER", "azor-auth"),
		MFAIssuer: getEnvOrDefault("MFA_ISSUER", "Azor"),
		JWTSecret: os.Getenv("AUTH_JWT_SECRET"),

		SessionTTL:       getEnvDurationOrDefault("SESSION_TTL", 8*time.Hour),
		BootstrapTTL:     getEnvDurationOrDefault("BOOTSTRAP_TTL", 15*time.Minute),
		PasswordResetTTL: getEnvDurationOrDefault("PASSWORD_RESET_TTL", time.Hour),

		RequireMFA:     getEnvBoolOrDefault("REQUIRE_MFA", false),
		AllowBootstrap: getEnvBoolOrDefault("MFA_ALLOW_BOOTSTRAP", true),

		CookieName:   getEnvOrDefault("COOKIE_NAME", "azor_access"),
		CookieDomain: os.Getenv("COOKIE_DOMAIN"),
		CookieSecure: getEnvBoolOrDefault("COOKIE_SECURE", env != "dev"),

		DBDriver:     getEnvOrDefault("DB_DRIVER", "sqlite"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "azorauth.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		AMQPURL: os.Getenv("AMQP_URL"),

		PepperFile: getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		Env:                  env,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
		AuditRetention:       getEnvDurationOrDefault("AUDIT_RETENTION", 90*24*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
