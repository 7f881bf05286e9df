package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Gateway  GatewayConfig
	Events   EventsConfig
	Media    MediaConfig
	Promo    PromoConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string
	Format string // "json" or "console"
}

// AuthConfig points at the external identity provider's token
// verification endpoint.
type AuthConfig struct {
	VerifyURL string
	Timeout   int // seconds
}

// GatewayConfig holds payment gateway (Stripe) configuration.
type GatewayConfig struct {
	SecretKey          string
	WebhookSecret      string
	SuccessURL         string
	CancelURL          string
	Currency           string
	HeuristicFallbacks bool // enables reconciliation fallback steps beyond direct id match
}

// EventsConfig holds the SQS event bus configuration. Publishing is
// fire-and-forget; failures are logged, never retried.
type EventsConfig struct {
	Enabled        bool
	Region         string
	OrderPaidQueue string
	ReviewQueue    string
}

// MediaConfig holds S3 configuration for product image URLs.
type MediaConfig struct {
	Enabled    bool
	Bucket     string
	Region     string
	URLExpiry  int // seconds
	PublicBase string
}

// PromoConfig holds promo source file configuration.
type PromoConfig struct {
	Enabled          bool
	FilePaths        []string
	S3Enabled        bool
	S3Bucket         string
	S3Region         string
	S3Prefix         string
	DiscountBasisPts int64
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "shopfront"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			VerifyURL: getEnv("AUTH_VERIFY_URL", ""),
			Timeout:   getEnvAsInt("AUTH_TIMEOUT", 5),
		},
		Gateway: GatewayConfig{
			SecretKey:          getEnv("GATEWAY_SECRET_KEY", ""),
			WebhookSecret:      getEnv("GATEWAY_WEBHOOK_SECRET", ""),
			SuccessURL:         getEnv("GATEWAY_SUCCESS_URL", "http://localhost:3000/checkout/success"),
			CancelURL:          getEnv("GATEWAY_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
			Currency:           getEnv("GATEWAY_CURRENCY", "usd"),
			HeuristicFallbacks: getEnvAsBool("GATEWAY_HEURISTIC_FALLBACKS", true),
		},
		Events: EventsConfig{
			Enabled:        getEnvAsBool("EVENTS_ENABLED", false),
			Region:         getEnv("EVENTS_REGION", "us-east-1"),
			OrderPaidQueue: getEnv("EVENTS_ORDER_PAID_QUEUE", ""),
			ReviewQueue:    getEnv("EVENTS_REVIEW_QUEUE", ""),
		},
		Media: MediaConfig{
			Enabled:    getEnvAsBool("MEDIA_ENABLED", false),
			Bucket:     getEnv("MEDIA_BUCKET", ""),
			Region:     getEnv("MEDIA_REGION", "us-east-1"),
			URLExpiry:  getEnvAsInt("MEDIA_URL_EXPIRY", 900),
			PublicBase: getEnv("MEDIA_PUBLIC_BASE", ""),
		},
		Promo: PromoConfig{
			Enabled:          getEnvAsBool("PROMO_ENABLED", false),
			FilePaths:        splitEnv("PROMO_FILES", "data/promos/promobase1.gz,data/promos/promobase2.gz,data/promos/promobase3.gz"),
			S3Enabled:        getEnvAsBool("PROMO_S3_ENABLED", false),
			S3Bucket:         getEnv("PROMO_S3_BUCKET", ""),
			S3Region:         getEnv("PROMO_S3_REGION", "us-east-1"),
			S3Prefix:         getEnv("PROMO_S3_PREFIX", "promos/"),
			DiscountBasisPts: int64(getEnvAsInt("PROMO_DISCOUNT_BASIS_POINTS", 1000)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.VerifyURL == "" {
		return fmt.Errorf("auth verify URL is required")
	}

	if c.Gateway.SecretKey == "" {
		return fmt.Errorf("gateway secret key is required")
	}

	if c.Gateway.WebhookSecret == "" {
		return fmt.Errorf("gateway webhook secret is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Events.Enabled {
		if c.Events.OrderPaidQueue == "" {
			return fmt.Errorf("order-paid queue URL is required when events are enabled")
		}
		if c.Events.ReviewQueue == "" {
			return fmt.Errorf("review queue URL is required when events are enabled")
		}
	}

	if c.Media.Enabled && c.Media.Bucket == "" {
		return fmt.Errorf("media bucket is required when media is enabled")
	}

	if c.Promo.Enabled {
		if len(c.Promo.FilePaths) == 0 {
			return fmt.Errorf("at least one promo file is required when promos are enabled")
		}
		if c.Promo.DiscountBasisPts < 0 || c.Promo.DiscountBasisPts > 10000 {
			return fmt.Errorf("promo discount basis points must be between 0 and 10000")
		}
		if c.Promo.S3Enabled && c.Promo.S3Bucket == "" {
			return fmt.Errorf("promo S3 bucket is required when promo S3 is enabled")
		}
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// splitEnv retrieves a comma-separated environment variable as a slice.
func splitEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
