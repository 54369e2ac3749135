// Package config loads process configuration from the environment and the
// per-pipeline YAML file.
//
// Environment values are resolved in order: OS environment, then a .env file
// in the working directory, then struct defaults.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"weather-etl/internal/models"
	"weather-etl/pkg/database"
)

// Config is the environment half of the configuration.
type Config struct {
	APIKey         string        `envconfig:"API_KEY"`
	APIBaseURL     string        `envconfig:"API_BASE_URL" default:"https://dataservice.accuweather.com" validate:"required,url"`
	APITimeout     time.Duration `envconfig:"API_TIMEOUT" default:"30s"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"INFO" validate:"oneof=DEBUG INFO WARN ERROR FATAL debug info warn error fatal"`
	Environment    string        `envconfig:"APP_ENV" default:"development"`
	PushgatewayURL string        `envconfig:"PUSHGATEWAY_URL" validate:"omitempty,url"`

	Database DatabaseConfig
	Server   ServerConfig
	Redis    RedisConfig
}

// DatabaseConfig holds Postgres connection and pool settings.
type DatabaseConfig struct {
	Host            string        `envconfig:"POSTGRES_HOST" validate:"required"`
	Port            int           `envconfig:"POSTGRES_PORT" default:"5432" validate:"gt=0,lte=65535"`
	Name            string        `envconfig:"POSTGRES_DB" validate:"required"`
	User            string        `envconfig:"POSTGRES_USER" validate:"required"`
	Password        string        `envconfig:"POSTGRES_PASSWORD"`
	SSLMode         string        `envconfig:"POSTGRES_SSLMODE" default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m"`
}

// ServerConfig configures the reporting API.
type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `envconfig:"SERVER_PORT" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
}

// RedisConfig enables run-status publication when Addr is set.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`
	Stream   string `envconfig:"REDIS_STREAM" default:"weather_pipeline_runs"`
}

// Enabled reports whether a Redis address was configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// ToDatabase converts the settings into the connection wrapper's config
func (d DatabaseConfig) ToDatabase() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Name,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// Load reads .env (if present), processes the environment and validates it.
func Load() (*Config, error) {
	// A missing .env file is not an error; real environment values win.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &models.ConfigError{
			Source:  "environment",
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &models.ConfigError{
			Source:  "environment",
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// RequireAPIKey fails when no weather API key is configured. Only the
// pipeline needs one, so Load does not enforce it.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return &models.ConfigError{
			Source:  "environment",
			Message: "API_KEY is required",
		}
	}
	return nil
}
