// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Streak   StreakConfig   `mapstructure:"streak"`
	Geo      GeoConfig      `mapstructure:"geo"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the leaderboard mirror connection.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LedgerConfig tunes how ledger writes are serialized and retried.
type LedgerConfig struct {
	MaxRetries  int           `mapstructure:"max_retries"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	RecentLimit int           `mapstructure:"recent_limit"`
}

// StreakConfig holds streak tracker settings.
type StreakConfig struct {
	GraceHours int    `mapstructure:"grace_hours"`
	Timezone   string `mapstructure:"timezone"`
}

// Grace returns the grace window as a duration.
func (s StreakConfig) Grace() time.Duration {
	return time.Duration(s.GraceHours) * time.Hour
}

// Location resolves Timezone, falling back to UTC.
func (s StreakConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid streak timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// GeoConfig holds province bonus settings.
type GeoConfig struct {
	// UnderrepresentedThreshold is the approved count below which a province
	// earns the underrepresented bonus.
	UnderrepresentedThreshold int `mapstructure:"underrepresented_threshold"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., DATABASE_HOST, REDIS_ADDR, LEDGER_MAX_RETRIES
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can provide all config.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Ledger.MaxRetries < 1 {
		return fmt.Errorf("ledger.max_retries must be at least 1, got %d", c.Ledger.MaxRetries)
	}
	if c.Streak.GraceHours < 1 {
		return fmt.Errorf("streak.grace_hours must be at least 1, got %d", c.Streak.GraceHours)
	}
	if _, err := c.Streak.Location(); err != nil {
		return err
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis.enabled is set")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pabuk")
	v.SetDefault("database.name", "pabuk")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "pabuk")

	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("ledger.lock_timeout", "5s")
	v.SetDefault("ledger.recent_limit", 10)

	v.SetDefault("streak.grace_hours", 48)
	v.SetDefault("streak.timezone", "UTC")

	v.SetDefault("geo.underrepresented_threshold", 5)

	v.SetDefault("log.level", "info")
}
