// Package config loads runtime configuration for the license service,
// grounded on the teacher's cmd/web/main.go initConfig/initLogger: a
// viper.Viper with defaults, an optional config.yaml, environment
// override, and a logrus.Logger built from the resulting level/format.
package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config wraps a *viper.Viper with the settings this service reads.
type Config struct {
	v *viper.Viper
}

// Load builds a Config with defaults, an optional config.yaml read from
// "." and "./config", and ALK_-prefixed environment overrides.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("clock.skew_seconds", 0)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("audit.max_entries", 1000)
	v.SetDefault("vault.addr", "")
	v.SetDefault("vault.secret_path", "alk/signing-key")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("ALK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// ClockSkewSeconds returns the configured clock skew tolerance (§6's
// clock_skew_tolerance_seconds), applied to the §3 invariant
// "issued <= now + skew" in the Policy Engine.
func (c *Config) ClockSkewSeconds() uint32 { return uint32(c.v.GetInt("clock.skew_seconds")) }

// RedisAddr returns the configured Redis address for RedisRecordStore.
func (c *Config) RedisAddr() string { return c.v.GetString("redis.addr") }

// RedisPassword returns the configured Redis password.
func (c *Config) RedisPassword() string { return c.v.GetString("redis.password") }

// RedisDB returns the configured Redis logical database index.
func (c *Config) RedisDB() int { return c.v.GetInt("redis.db") }

// StoreBackend returns "memory" or "redis".
func (c *Config) StoreBackend() string { return c.v.GetString("store.backend") }

// AuditMaxEntries returns the bound on the in-memory audit log.
func (c *Config) AuditMaxEntries() int { return c.v.GetInt("audit.max_entries") }

// VaultAddr returns the configured Vault server address, or "" to skip
// Vault entirely and fall back to an environment-provided secret.
func (c *Config) VaultAddr() string { return c.v.GetString("vault.addr") }

// VaultSecretPath returns the KVv2 path holding the signing secret,
// relative to the "secret" mount (the mount and "data/" are added by the
// Vault client).
func (c *Config) VaultSecretPath() string { return c.v.GetString("vault.secret_path") }

// NewLogger builds a logrus.Logger from the configured log level,
// formatted as JSON with RFC3339 timestamps, matching initLogger in the
// teacher's cmd/web/main.go.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.v.GetString("log.level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	return logger
}
