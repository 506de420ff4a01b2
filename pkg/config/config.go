package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pinwheelhq/atrium/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL         string
	ReplicaURLs string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
}

// RedisConfig holds Redis configuration (rate limiting, health)
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// RateLimitConfig holds per-organization rate limit settings
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	RetentionDays int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// OTel converts the observability settings into an OTelConfig.
func (c ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("ATRIUM_HOST", "0.0.0.0"),
			Port:            getEnv("ATRIUM_PORT", "8080"),
			ReadTimeout:     getEnvDuration("ATRIUM_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("ATRIUM_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("ATRIUM_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("ATRIUM_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("ATRIUM_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:         getEnv("ATRIUM_POSTGRES_URL", ""),
			ReplicaURLs: getEnv("ATRIUM_POSTGRES_REPLICA_URLS", ""),
			MaxConns:    getEnvInt("ATRIUM_POSTGRES_MAX_CONNS", 25),
			MinConns:    getEnvInt("ATRIUM_POSTGRES_MIN_CONNS", 5),
			Timeout:     getEnvDuration("ATRIUM_POSTGRES_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:      getEnv("ATRIUM_REDIS_URL", ""),
			Password: getEnv("ATRIUM_REDIS_PASSWORD", ""),
			DB:       getEnvInt("ATRIUM_REDIS_DB", 0),
			PoolSize: getEnvInt("ATRIUM_REDIS_POOL_SIZE", 10),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnvBool("ATRIUM_RATELIMIT_ENABLED", true),
			RequestsPerMinute: getEnvInt("ATRIUM_RATELIMIT_RPM", 600),
		},
		Audit: AuditConfig{
			RetentionDays: getEnvInt("ATRIUM_AUDIT_RETENTION_DAYS", 90),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(strings.ToLower(getEnv("ATRIUM_LOG_LEVEL", "info"))),
			MetricsEnabled:     getEnvBool("ATRIUM_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("ATRIUM_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("ATRIUM_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("ATRIUM_OTEL_SERVICE_NAME", "atrium-api"),
			OTelServiceVersion: getEnv("ATRIUM_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("ATRIUM_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("postgres max conns (%d) must be >= min conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	if c.RateLimit.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required when rate limiting is enabled")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests per minute must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
