// Package config manages environment variables.
//
// It reads variables (optionally from a `.env` file), loads them into
// structured Go types, applies the defaults the station service has always
// shipped with, and validates the result so the process fails fast on bad
// configuration.
//
// Env vars are read with the STATION_ prefix. A double underscore separates
// nesting levels:
//
//	STATION_DATABASE__POOL_SIZE=5  ->  database.pool_size  ->  Config.Database.PoolSize
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads `.env` into the process environment (if present)
	// before anything reads env vars.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every configuration env var must carry.
const EnvPrefix = "STATION_"

// ServiceName identifies this service in logs, metrics and APM dashboards.
const ServiceName = "station-api"

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional; defaults are injected
// before env values are decoded over them.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	// Env is one of local, development, staging, production.
	// "local" turns on SQL trace logging.
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are stored in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimit is the sustained number of requests per second allowed per
	// client IP. Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
	RateBurst int     `koanf:"rate_burst" validate:"min=0"`
}

// DatabaseConfig contains connection parameters and pool tuning.
//
// With Driver "sqlite", Name is the database file path and the network
// fields are ignored.
type DatabaseConfig struct {
	Driver   string `koanf:"driver" validate:"required,oneof=postgres sqlite"`
	Host     string `koanf:"host" validate:"required_if=Driver postgres"`
	Port     int    `koanf:"port" validate:"required_if=Driver postgres"`
	User     string `koanf:"user" validate:"required_if=Driver postgres"`
	Password string `koanf:"password"`
	Name     string `koanf:"name" validate:"required"`
	SSLMode  string `koanf:"ssl_mode"`

	// PoolSize is the fixed number of pooled connections.
	PoolSize int `koanf:"pool_size" validate:"min=1"`

	// AcquireTimeout bounds how long a request waits for a free connection.
	AcquireTimeout time.Duration `koanf:"acquire_timeout" validate:"min=0"`

	// QueryTimeout bounds one unit of work (acquire excluded).
	QueryTimeout time.Duration `koanf:"query_timeout" validate:"min=0"`

	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// Default returns the configuration used when no env var overrides a value.
// Database defaults match the values the tracker has historically used.
func Default() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:               "8000",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"*"},
			RateLimit:          20,
			RateBurst:          40,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "root",
			Name:            "space_station_db",
			SSLMode:         "disable",
			PoolSize:        5,
			AcquireTimeout:  5 * time.Second,
			QueryTimeout:    10 * time.Second,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// envKey maps STATION_DATABASE__POOL_SIZE to database.pool_size.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// LoadConfig loads configuration from environment variables on top of
// Default(), validates it and returns the result.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := Default()

	// Unmarshal only overwrites the keys present in env, so defaults survive.
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment are not user-configurable.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
