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

	// JWT configuration
	JWT JWTConfig

	// Mail gateway configuration
	Mail MailConfig

	// OTP configuration
	OTP OTPConfig

	// Redis configuration
	Redis RedisConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Booking domain configuration
	Booking BookingConfig
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

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// MailConfig holds transactional mail gateway configuration
type MailConfig struct {
	Mode        string // "dev" logs mail instead of sending, "production" hits the provider
	APIURL      string
	APIKey      string
	SenderName  string
	SenderEmail string
	// Reject recipients on throwaway domains before calling the provider
	BlockFakeDomains bool
}

// OTPConfig holds OTP-related configuration
type OTPConfig struct {
	Length            int
	ExpiryMinutes     int
	MaxAttempts       int
	RateLimit         int
	RateWindowMinutes int
}

// RedisConfig holds Redis configuration for the realtime change feed
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
	EnableAuditLog   bool
}

// BookingConfig holds booking domain defaults
type BookingConfig struct {
	DefaultDurationMinutes int
	CalendarDayStart       string // "HH:MM", first visible slot on the calendar
	CalendarDayEnd         string // "HH:MM", last visible slot on the calendar
	SessionActiveMinutes   int    // window for the connected-users report
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
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Mail: MailConfig{
			Mode:             getEnv("MAIL_MODE", "dev"), // "dev" or "production"
			APIURL:           getEnv("MAIL_API_URL", ""),
			APIKey:           getEnv("MAIL_API_KEY", ""),
			SenderName:       getEnv("MAIL_SENDER_NAME", "Bookings"),
			SenderEmail:      getEnv("MAIL_SENDER_EMAIL", "no-reply@example.com"),
			BlockFakeDomains: getEnvAsBool("MAIL_BLOCK_FAKE_DOMAINS", true),
		},
		OTP: OTPConfig{
			Length:            getEnvAsInt("OTP_LENGTH", 6),
			ExpiryMinutes:     getEnvAsInt("OTP_EXPIRY_MINUTES", 5),
			MaxAttempts:       getEnvAsInt("OTP_MAX_ATTEMPTS", 3),
			RateLimit:         getEnvAsInt("OTP_RATE_LIMIT", 3),
			RateWindowMinutes: getEnvAsInt("OTP_RATE_WINDOW_MINUTES", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANGE_CHANNEL", "booking-changes"),
		},
		RateLimit: RateLimitConfig{
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:   getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
		},
		Booking: BookingConfig{
			DefaultDurationMinutes: getEnvAsInt("BOOKING_DEFAULT_DURATION_MINUTES", 60),
			CalendarDayStart:       getEnv("CALENDAR_DAY_START", "08:00"),
			CalendarDayEnd:         getEnv("CALENDAR_DAY_END", "20:00"),
			SessionActiveMinutes:   getEnvAsInt("SESSION_ACTIVE_MINUTES", 15),
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

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	// Validate mail configuration only in production mode
	if c.Mail.Mode == "production" {
		if c.Mail.APIURL == "" {
			return fmt.Errorf("MAIL_API_URL is required in production mode")
		}

		if c.Mail.APIKey == "" {
			return fmt.Errorf("MAIL_API_KEY is required in production mode")
		}
	}

	if _, err := parseClock(c.Booking.CalendarDayStart); err != nil {
		return fmt.Errorf("CALENDAR_DAY_START: %w", err)
	}

	if _, err := parseClock(c.Booking.CalendarDayEnd); err != nil {
		return fmt.Errorf("CALENDAR_DAY_END: %w", err)
	}

	return nil
}

// parseClock validates an "HH:MM" clock value
func parseClock(value string) (time.Time, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock value %q (want HH:MM)", value)
	}
	return t, nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
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
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
