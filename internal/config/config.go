// Package config provides configuration management for the Podium prediction service.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/podium/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig           `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig      `mapstructure:"database"`
	Baseline  BaselineConfig      `mapstructure:"baseline" validate:"required"`
	Engine    EngineConfig        `mapstructure:"engine"`
	Weights   models.WeightVector `mapstructure:"weights"`
	Cache     CacheConfig         `mapstructure:"cache" validate:"required"`
	Server    ServerConfig        `mapstructure:"server" validate:"required"`
	Metrics   MetricsConfig       `mapstructure:"metrics" validate:"required"`
	Scheduler SchedulerConfig     `mapstructure:"scheduler"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration. Persistence
// is optional; when disabled predictions are served but not stored.
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	RetainPerRace  int    `mapstructure:"retain_per_race" validate:"gte=0"`
}

// BaselineConfig points at the upstream baseline model service. With
// source "file" fields are read from FieldsDir instead.
type BaselineConfig struct {
	Source         string  `mapstructure:"source" validate:"omitempty,oneof=http file"`
	FieldsDir      string  `mapstructure:"fields_dir" validate:"required_if=Source file"`
	URL            string  `mapstructure:"url" validate:"required,url"`
	APIKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"gte=0"`
	RateBurst      int     `mapstructure:"rate_burst" validate:"gte=0"`
}

// EngineConfig tunes the overlay engine. Zero values select the built-in defaults.
type EngineConfig struct {
	ChaosStdDev      float64 `mapstructure:"chaos_std_dev" validate:"gte=0,lte=1"`
	ProbabilityFloor float64 `mapstructure:"probability_floor" validate:"gte=0,lt=1"`
}

// CacheConfig configures the prediction result cache
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds" validate:"required,gt=0"`
	MaxSize    int  `mapstructure:"max_size" validate:"required,gt=0"`
}

// ServerConfig configures the prediction API
type ServerConfig struct {
	Port                  int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	CORSOrigins           []string `mapstructure:"cors_origins"`
	RequestTimeoutSeconds int      `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig configures the cache warm-up job
type SchedulerConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	WarmupCron string   `mapstructure:"warmup_cron" validate:"omitempty,cronspec"`
	Races      []string `mapstructure:"races"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// BaselineTimeout returns the upstream request timeout
func (c *Config) BaselineTimeout() time.Duration {
	return time.Duration(c.Baseline.TimeoutSeconds) * time.Second
}

// CacheTTL returns the prediction cache TTL
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// RequestTimeout returns the per-request API timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
