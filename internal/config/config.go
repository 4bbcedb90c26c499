// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/polpa/costengine/internal/logger"
)

// Dispatch modes. The mode is selected once at startup; it is never branched
// per request.
const (
	DispatchModeQueued = "queued"
	DispatchModeSync   = "sync"
)

// DBConfig holds the postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds the read-cache settings. The cache is optional: the API
// keeps working when redis is unreachable.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MLConfig holds the remote prediction service settings.
type MLConfig struct {
	BaseURL string
	Timeout time.Duration
}

// QueueConfig holds the durable queue and worker pool settings.
type QueueConfig struct {
	MaxAttempts       int
	BaseBackoff       time.Duration
	FailedRetention   int
	PollInterval      time.Duration
	Workers           int
	VisibilityTimeout time.Duration
}

// AuthConfig holds the credentials the HTTP layer validates against.
type AuthConfig struct {
	JWTSecret     string
	WebhookSecret string
}

// Config holds the application's configuration values.
type Config struct {
	ServerPort   string
	DispatchMode string
	Logging      logger.Config
	Database     *DBConfig
	Redis        RedisConfig
	ML           MLConfig
	Queue        QueueConfig
	Auth         AuthConfig
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("DISPATCH_MODE", DispatchModeQueued)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "costengine")
	v.SetDefault("DB_NAME", "costengine")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ML_TIMEOUT", "25s")
	v.SetDefault("QUEUE_MAX_ATTEMPTS", 3)
	v.SetDefault("QUEUE_BASE_BACKOFF", "5s")
	v.SetDefault("QUEUE_FAILED_RETENTION", 500)
	v.SetDefault("QUEUE_POLL_INTERVAL", "500ms")
	v.SetDefault("QUEUE_VISIBILITY_TIMEOUT", "5m")
	v.SetDefault("WORKER_COUNT", 3)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// A missing .env is fine; a broken one is not.
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if v.GetString("ML_BASE_URL") == "" {
		return nil, fmt.Errorf("ML_BASE_URL must be set")
	}
	if v.GetString("JWT_SECRET") == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	if v.GetString("ML_WEBHOOK_SECRET") == "" {
		return nil, fmt.Errorf("ML_WEBHOOK_SECRET must be set")
	}

	mode := v.GetString("DISPATCH_MODE")
	if mode != DispatchModeQueued && mode != DispatchModeSync {
		return nil, fmt.Errorf("unsupported DISPATCH_MODE: %q (want %q or %q)", mode, DispatchModeQueued, DispatchModeSync)
	}

	cfg := &Config{
		ServerPort:   v.GetString("SERVER_PORT"),
		DispatchMode: mode,
		Logging: logger.Config{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
		Database: &DBConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Username:        v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		ML: MLConfig{
			BaseURL: v.GetString("ML_BASE_URL"),
			Timeout: v.GetDuration("ML_TIMEOUT"),
		},
		Queue: QueueConfig{
			MaxAttempts:       v.GetInt("QUEUE_MAX_ATTEMPTS"),
			BaseBackoff:       v.GetDuration("QUEUE_BASE_BACKOFF"),
			FailedRetention:   v.GetInt("QUEUE_FAILED_RETENTION"),
			PollInterval:      v.GetDuration("QUEUE_POLL_INTERVAL"),
			Workers:           v.GetInt("WORKER_COUNT"),
			VisibilityTimeout: v.GetDuration("QUEUE_VISIBILITY_TIMEOUT"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("JWT_SECRET"),
			WebhookSecret: v.GetString("ML_WEBHOOK_SECRET"),
		},
	}

	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 3
	}
	if cfg.Queue.MaxAttempts <= 0 {
		cfg.Queue.MaxAttempts = 3
	}

	return cfg, nil
}
