package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig   `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth      AuthConfig     `mapstructure:"auth" validate:"required"`
	Reminders ReminderConfig `mapstructure:"reminders" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int             `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string          `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout" validate:"gt=0"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig controls the per-client limiter in front of the
// authentication endpoints.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gt=0"`
	Burst             int           `mapstructure:"burst" validate:"gt=0"`
	CacheSize         int           `mapstructure:"cache_size" validate:"gt=0"`
	TTL               time.Duration `mapstructure:"ttl" validate:"gt=0"`
	// TrustHeaders keys clients by X-Forwarded-For / X-Real-IP when set.
	TrustHeaders bool `mapstructure:"trust_headers"`
}

// DatabaseConfig selects and tunes the storage backend.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=postgres mongo memory"`
	URL             string        `mapstructure:"url" validate:"required_unless=Driver memory"`
	Name            string        `mapstructure:"name" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains token and password hashing settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gtfield=TokenLifetimeMinutes"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// ReminderConfig drives the due-date reminder scheduler.
type ReminderConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval" validate:"gt=0"`
	LeadTime    time.Duration `mapstructure:"lead_time" validate:"gt=0"`
	WorkerCount int           `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int           `mapstructure:"queue_size" validate:"gt=0"`
}
