package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (shared lease locks)
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Booking / reservation policy
	Booking BookingConfig

	// Presence feed configuration
	Presence PresenceConfig

	// Reservation attempt throttling
	RateLimit RateLimitConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Notification delivery configuration
	Notification NotificationConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds the address of the Redis instance used for cross-process locks.
// An empty Addr means locks are process-local.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret               string // admin access tokens
	PaymentWebhookSecret string // payment verification tokens
	AdminTokenExpiry     time.Duration
	PaymentTokenExpiry   time.Duration
}

// BookingConfig holds the reservation policy constants
type BookingConfig struct {
	HoldWindow            time.Duration // how long a pending_payment booking blocks the room
	CleaningBufferDays    int
	PriceTolerance        float64
	LockWait              time.Duration // bounded wait for a per-resource lease
	LockLeaseTTL          time.Duration // lease expiry if the holder dies
	CleaningRatePerPeriod float64
	CleaningPeriodDays    int
	ExpirationSweepSpec   string // robfig/cron spec for the expired-hold sweeper
	Currency              string
}

// PresenceConfig holds presence/event store configuration
type PresenceConfig struct {
	SessionTTL    time.Duration
	EventCapacity int
	SweepSpec     string // robfig/cron spec for dropping idle sessions
}

// RateLimitConfig bounds reservation attempts per guest email and client IP
type RateLimitConfig struct {
	Enabled     bool
	MaxPerEmail int
	MaxPerIP    int
	Window      time.Duration
	CleanupSpec string // robfig/cron spec for purging old attempt rows
}

// PaymentConfig holds checkout gateway configuration
type PaymentConfig struct {
	Mode        string // "mock" or "production"
	AccessToken string // Mercado Pago access token (SECRET)
	SuccessURL  string
	FailureURL  string
	PendingURL  string
	WebhookURL  string
}

// NotificationConfig holds outbound notification gateways
type NotificationConfig struct {
	Mode             string // "dev" logs messages, "production" sends them
	WhatsAppAPIURL   string
	WhatsAppAPIToken string
	EmailAPIURL      string
	EmailAPIToken    string
	EmailFrom        string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:               getEnv("JWT_SECRET", ""),
			PaymentWebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			AdminTokenExpiry:     time.Duration(getEnvAsInt("JWT_ADMIN_EXPIRY_MINUTES", 60)) * time.Minute,
			PaymentTokenExpiry:   time.Duration(getEnvAsInt("JWT_PAYMENT_EXPIRY_MINUTES", 30)) * time.Minute,
		},
		Booking: BookingConfig{
			HoldWindow:            time.Duration(getEnvAsInt("BOOKING_HOLD_WINDOW_MINUTES", 60)) * time.Minute,
			CleaningBufferDays:    getEnvAsInt("CLEANING_BUFFER_DAYS", 2),
			PriceTolerance:        getEnvAsFloat("PRICE_TOLERANCE", 50),
			LockWait:              time.Duration(getEnvAsInt("LOCK_WAIT_MS", 5000)) * time.Millisecond,
			LockLeaseTTL:          time.Duration(getEnvAsInt("LOCK_LEASE_TTL_SECONDS", 30)) * time.Second,
			CleaningRatePerPeriod: getEnvAsFloat("CLEANING_RATE_PER_PERIOD", 0),
			CleaningPeriodDays:    getEnvAsInt("CLEANING_PERIOD_DAYS", 7),
			ExpirationSweepSpec:   getEnv("EXPIRATION_SWEEP_SPEC", "@every 1m"),
			Currency:              getEnv("CURRENCY", "MXN"),
		},
		Presence: PresenceConfig{
			SessionTTL:    time.Duration(getEnvAsInt("PRESENCE_TTL_SECONDS", 300)) * time.Second,
			EventCapacity: getEnvAsInt("PRESENCE_EVENT_CAPACITY", 50),
			SweepSpec:     getEnv("PRESENCE_SWEEP_SPEC", "@every 1m"),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getEnvAsBool("RATE_LIMIT_ENABLED", true),
			MaxPerEmail: getEnvAsInt("RATE_LIMIT_MAX_PER_EMAIL", 5),
			MaxPerIP:    getEnvAsInt("RATE_LIMIT_MAX_PER_IP", 20),
			Window:      time.Duration(getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 60)) * time.Minute,
			CleanupSpec: getEnv("RATE_LIMIT_CLEANUP_SPEC", "@every 15m"),
		},
		Payment: PaymentConfig{
			Mode:        getEnv("PAYMENT_MODE", "mock"),
			AccessToken: getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
			SuccessURL:  getEnv("PAYMENT_SUCCESS_URL", ""),
			FailureURL:  getEnv("PAYMENT_FAILURE_URL", ""),
			PendingURL:  getEnv("PAYMENT_PENDING_URL", ""),
			WebhookURL:  getEnv("PAYMENT_WEBHOOK_URL", ""),
		},
		Notification: NotificationConfig{
			Mode:             getEnv("NOTIFICATION_MODE", "dev"),
			WhatsAppAPIURL:   getEnv("WHATSAPP_API_URL", ""),
			WhatsAppAPIToken: getEnv("WHATSAPP_API_TOKEN", ""),
			EmailAPIURL:      getEnv("EMAIL_API_URL", ""),
			EmailAPIToken:    getEnv("EMAIL_API_TOKEN", ""),
			EmailFrom:        getEnv("EMAIL_FROM", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.PaymentWebhookSecret == "" {
		return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required")
	}

	if c.Booking.HoldWindow <= 0 {
		return fmt.Errorf("BOOKING_HOLD_WINDOW_MINUTES must be positive")
	}

	if c.Booking.CleaningBufferDays < 0 {
		return fmt.Errorf("CLEANING_BUFFER_DAYS cannot be negative")
	}

	if c.Booking.CleaningPeriodDays <= 0 {
		return fmt.Errorf("CLEANING_PERIOD_DAYS must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.MaxPerEmail <= 0 || c.RateLimit.MaxPerIP <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("RATE_LIMIT_MAX_PER_EMAIL, RATE_LIMIT_MAX_PER_IP and RATE_LIMIT_WINDOW_MINUTES must be positive")
	}

	if c.Payment.Mode == "production" && c.Payment.AccessToken == "" {
		return fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN is required when PAYMENT_MODE=production")
	}

	if c.Notification.Mode == "production" && c.Notification.WhatsAppAPIURL == "" && c.Notification.EmailAPIURL == "" {
		return fmt.Errorf("at least one of WHATSAPP_API_URL or EMAIL_API_URL is required in production mode")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
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
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid bool value for %s, using default: %v", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
