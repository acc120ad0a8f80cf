package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"                env:"SERVER_ADDR"                env-default:":8080"`
	Mode              string        `yaml:"mode"                env:"SERVER_MODE"                env-default:"release"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"SERVER_READ_HEADER_TIMEOUT" env-default:"10s"`
	ReadTimeout       time.Duration `yaml:"read_timeout"        env:"SERVER_READ_TIMEOUT"        env-default:"30s"`
	WriteTimeout      time.Duration `yaml:"write_timeout"       env:"SERVER_WRITE_TIMEOUT"       env-default:"60s"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"        env:"SERVER_IDLE_TIMEOUT"        env-default:"120s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"SERVER_SHUTDOWN_TIMEOUT"    env-default:"5s"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"DATABASE_PATH" env-default:"storeroom.sqlite3"`
}

// AuthConfig holds authentication settings. An empty JWTSecret means the
// secret stored in the database is used.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"`
	TokenTTL       time.Duration `yaml:"token_ttl"        env:"AUTH_TOKEN_TTL"        env-default:"24h"`
	AdminUsername  string        `yaml:"admin_username"   env:"AUTH_ADMIN_USERNAME"   env-default:"admin"`
	LoginRateLimit float64       `yaml:"login_rate_limit" env:"AUTH_LOGIN_RATE_LIMIT" env-default:"0.2"`
	LoginBurst     int           `yaml:"login_burst"      env:"AUTH_LOGIN_BURST"      env-default:"5"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
	File   string `yaml:"file"   env:"LOG_FILE"`
}

// KafkaConfig holds settings for publishing stock events.
type KafkaConfig struct {
	Enabled  bool     `yaml:"enabled"   env:"KAFKA_ENABLED"   env-default:"false"`
	Brokers  []string `yaml:"brokers"   env:"KAFKA_BROKERS"   env-default:"localhost:9092" env-separator:","`
	Topic    string   `yaml:"topic"     env:"KAFKA_TOPIC"     env-default:"storeroom.stock"`
	ClientID string   `yaml:"client_id" env:"KAFKA_CLIENT_ID" env-default:"storeroom"`
	Retries  int      `yaml:"retries"   env:"KAFKA_RETRIES"   env-default:"3"`
	Acks     string   `yaml:"acks"      env:"KAFKA_ACKS"      env-default:"all"`
}

// IdempotencyConfig holds settings for replaying write responses by request id.
type IdempotencyConfig struct {
	TTL  time.Duration `yaml:"ttl"  env:"IDEMPOTENCY_TTL"  env-default:"10m"`
	Size int           `yaml:"size" env:"IDEMPOTENCY_SIZE" env-default:"1024"`
}
