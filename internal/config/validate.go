package config

import (
	"fmt"
	"slices"
)

var (
	logLevels   = []string{"debug", "info", "warn", "error"}
	logFormats  = []string{"json", "console"}
	serverModes = []string{"debug", "release", "test"}
	kafkaAcks   = []string{"0", "1", "all"}
)

// Validate performs range checks on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !slices.Contains(serverModes, c.Server.Mode) {
		return fmt.Errorf("server.mode must be one of %v (got %q)", serverModes, c.Server.Mode)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0 (got %v)", c.Auth.TokenTTL)
	}
	if c.Auth.AdminUsername == "" {
		return fmt.Errorf("auth.admin_username is required")
	}
	if c.Auth.LoginRateLimit <= 0 || c.Auth.LoginBurst < 1 {
		return fmt.Errorf("auth.login_rate_limit must be > 0 and auth.login_burst >= 1")
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		return fmt.Errorf("log.level must be one of %v (got %q)", logLevels, c.Log.Level)
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		return fmt.Errorf("log.format must be one of %v (got %q)", logFormats, c.Log.Format)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
		if !slices.Contains(kafkaAcks, c.Kafka.Acks) {
			return fmt.Errorf("kafka.acks must be one of %v (got %q)", kafkaAcks, c.Kafka.Acks)
		}
		if c.Kafka.Retries < 0 {
			return fmt.Errorf("kafka.retries must be >= 0 (got %d)", c.Kafka.Retries)
		}
	}

	if c.Idempotency.TTL <= 0 || c.Idempotency.Size < 1 {
		return fmt.Errorf("idempotency.ttl must be > 0 and idempotency.size >= 1")
	}

	return nil
}
