package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kosmed/glucose-monitoring-service/internal/alerts"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Database    DatabaseConfig
	Redis       RedisConfig
	RabbitMQ    RabbitMQConfig
	Auth        AuthConfig
	Validation  ValidationConfig
	RateLimit   RateLimitConfig
	Alerts      AlertsConfig
	Query       QueryConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds the volatile cache connection settings
type RedisConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and exchange settings
type RabbitMQConfig struct {
	URL                string
	AlertExchange      string
	AlertRoutingPrefix string
}

// AuthConfig holds the credential sets accepted by the API. Device routes
// use API keys, user routes use bearer tokens.
type AuthConfig struct {
	APIKeys        []string
	MinTokenLength int
}

// ValidationConfig holds reading validation settings
type ValidationConfig struct {
	FutureTolerance time.Duration
	MaxReadingAge   time.Duration
}

// RateLimitConfig holds the per-device gate and the general API limiter
// settings
type RateLimitConfig struct {
	DeviceWindow   time.Duration
	RequestsPerMin int
	Burst          int
}

// AlertsConfig holds alert thresholds: defaults plus per-user overrides
type AlertsConfig struct {
	Defaults      alerts.Thresholds
	UserOverrides map[string]alerts.Thresholds
}

// QueryConfig holds query and analytics settings
type QueryConfig struct {
	DefaultPeriod   string
	MaxPageSize     int
	DefaultPageSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	overrides, err := parseThresholdOverrides(os.Getenv("ALERT_USER_OVERRIDES"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_USER_OVERRIDES: %w", err)
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "glucose-monitoring-service"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8080),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                getEnv("RABBITMQ_URL", ""),
			AlertExchange:      getEnv("RABBITMQ_ALERT_EXCHANGE", "glucose.alerts.exchange"),
			AlertRoutingPrefix: getEnv("RABBITMQ_ALERT_ROUTING_PREFIX", "glucose.alert"),
		},
		Auth: AuthConfig{
			APIKeys:        splitNonEmpty(getEnv("API_KEYS", "dev-api-key-12345")),
			MinTokenLength: getEnvAsInt("AUTH_MIN_TOKEN_LENGTH", 10),
		},
		Validation: ValidationConfig{
			FutureTolerance: time.Duration(getEnvAsInt("VALIDATION_FUTURE_TOLERANCE_MINUTES", 5)) * time.Minute,
			MaxReadingAge:   time.Duration(getEnvAsInt("VALIDATION_MAX_READING_AGE_HOURS", 72)) * time.Hour,
		},
		RateLimit: RateLimitConfig{
			DeviceWindow:   time.Duration(getEnvAsInt("RATE_LIMIT_DEVICE_WINDOW_SECONDS", 30)) * time.Second,
			RequestsPerMin: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 120),
			Burst:          getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Alerts: AlertsConfig{
			Defaults: alerts.Thresholds{
				Low:             getEnvAsInt("ALERT_THRESHOLD_LOW", 70),
				High:            getEnvAsInt("ALERT_THRESHOLD_HIGH", 180),
				RapidChangeRate: getEnvAsFloat("ALERT_RAPID_CHANGE_RATE", 4.0),
			},
			UserOverrides: overrides,
		},
		Query: QueryConfig{
			DefaultPeriod:   getEnv("QUERY_DEFAULT_PERIOD", "7d"),
			MaxPageSize:     getEnvAsInt("QUERY_MAX_PAGE_SIZE", 1000),
			DefaultPageSize: getEnvAsInt("QUERY_DEFAULT_PAGE_SIZE", 100),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.Redis.URL == "" {
		return nil, fmt.Errorf("REDIS_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

// parseThresholdOverrides parses a JSON map of user ID to thresholds, e.g.
// {"user_9012":{"low":65,"high":180,"rapidChangeRate":4}}
func parseThresholdOverrides(raw string) (map[string]alerts.Thresholds, error) {
	if raw == "" {
		return nil, nil
	}
	var overrides map[string]alerts.Thresholds
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

func splitNonEmpty(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
