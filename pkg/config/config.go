package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Storage       StorageConfig
	SMS           SMSConfig
	Mail          MailConfig
	Cache         CacheConfig
	Verify        VerifyConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret   string
	TokenSecret string
	AdminEmail  string
}

// StorageConfig selects where capture artifacts (photos, signatures) land.
// Backend is "local" or "s3".
type StorageConfig struct {
	Backend   string
	LocalPath string
	S3Bucket  string
	S3Region  string
	S3Prefix  string
}

type SMSConfig struct {
	Enabled       bool
	ProviderURL   string
	APIKey        string
	SenderID      string
	RetryInterval string
}

type MailConfig struct {
	ResendAPIKey string
	FromAddress  string
}

type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	VerifyTTL     int
}

// VerifyConfig governs the public verification page.
type VerifyConfig struct {
	RateLimitPerSecond int
	RateLimitBurst     int
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
	TracingEnabled bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "localhost"),
			Port:    getEnvAsInt("SERVER_PORT", 8080),
			BaseURL: getEnv("BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "notifica-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", "changeme"),
			TokenSecret: getEnv("VERIFICATION_TOKEN_SECRET", ""),
			AdminEmail:  getEnv("ADMIN_EMAIL", ""),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			S3Bucket:  getEnv("STORAGE_S3_BUCKET", ""),
			S3Region:  getEnv("STORAGE_S3_REGION", ""),
			S3Prefix:  getEnv("STORAGE_S3_PREFIX", "captures"),
		},
		SMS: SMSConfig{
			Enabled:       getEnvAsBool("SMS_ENABLED", false),
			ProviderURL:   getEnv("SMS_PROVIDER_URL", ""),
			APIKey:        getEnv("SMS_API_KEY", ""),
			SenderID:      getEnv("SMS_SENDER_ID", "EPEN"),
			RetryInterval: getEnv("SMS_RETRY_INTERVAL", "5m"),
		},
		Mail: MailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromAddress:  getEnv("MAIL_FROM", "notificaciones@nqn-field.gov.ar"),
		},
		Cache: CacheConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			VerifyTTL:     getEnvAsInt("VERIFY_CACHE_TTL_SECONDS", 300),
		},
		Verify: VerifyConfig{
			RateLimitPerSecond: getEnvAsInt("VERIFY_RATE_LIMIT_PER_SECOND", 5),
			RateLimitBurst:     getEnvAsInt("VERIFY_RATE_LIMIT_BURST", 10),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
			TracingEnabled: getEnvAsBool("TRACING_ENABLED", false),
		},
	}

	if cfg.Auth.TokenSecret == "" {
		return nil, errors.New("VERIFICATION_TOKEN_SECRET is required")
	}

	if cfg.Storage.Backend == "s3" && cfg.Storage.S3Bucket == "" {
		return nil, errors.New("STORAGE_S3_BUCKET is required when STORAGE_BACKEND=s3")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
