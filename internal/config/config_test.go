package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

// chdirTemp runs the test in an empty directory so no stray .env is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "storeroom.sqlite3", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "admin", cfg.Auth.AdminUsername)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10*time.Minute, cfg.Idempotency.TTL)
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	chdirTemp(t)
	path := writeYAML(t, `
server:
  addr: "127.0.0.1:9090"
  mode: "debug"
database:
  path: "/tmp/inventory.sqlite3"
log:
  level: "debug"
  format: "console"
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  topic: "stock"
`)
	t.Setenv("DATABASE_PATH", "/var/lib/storeroom.sqlite3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Server.Mode)
	assert.Equal(t, "/var/lib/storeroom.sqlite3", cfg.Database.Path)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "stock", cfg.Kafka.Topic)
}

func TestLoad_DotEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_PATH", "")
	// t.Setenv restores the variable afterwards; godotenv only fills unset ones.
	t.Setenv("LOG_LEVEL", "")
	os.Unsetenv("LOG_LEVEL")
	require.NoError(t, os.WriteFile(".env", []byte("LOG_LEVEL=warn\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	chdirTemp(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func validConfig() Config {
	return Config{
		Server:      ServerConfig{Addr: ":8080", Mode: "release"},
		Database:    DatabaseConfig{Path: "db.sqlite3"},
		Auth:        AuthConfig{TokenTTL: time.Hour, AdminUsername: "admin", LoginRateLimit: 1, LoginBurst: 5},
		Log:         LogConfig{Level: "info", Format: "json"},
		Kafka:       KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t", Acks: "all"},
		Idempotency: IdempotencyConfig{TTL: time.Minute, Size: 10},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"long jwt secret", func(c *Config) { c.Auth.JWTSecret = "0123456789abcdef0123456789abcdef" }, false},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"bad mode", func(c *Config) { c.Server.Mode = "prod" }, true},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, true},
		{"kafka bad acks", func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Acks = "2" }, true},
		{"disabled kafka ignores acks", func(c *Config) { c.Kafka.Acks = "2" }, false},
		{"zero idempotency size", func(c *Config) { c.Idempotency.Size = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
