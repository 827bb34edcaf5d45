// Package config loads and validates app config from env and an optional
// .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim set on access credentials.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim set on access credentials.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access credential lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// SessionTTLRaw is the refresh session lifetime (e.g. "720h").
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// Argon2MemoryKiB is the Argon2id memory cost in KiB; default 65536 (64 MiB).
	Argon2MemoryKiB uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	// Argon2Passes is the Argon2id time cost; default 3.
	Argon2Passes uint32 `mapstructure:"ARGON2_PASSES"`
	// Argon2Parallelism is the Argon2id lane count; default 2.
	Argon2Parallelism uint8 `mapstructure:"ARGON2_PARALLELISM"`
	// SweepIntervalRaw is how often expired sessions are reclaimed (e.g. "1h"). Empty disables the in-process sweep.
	SweepIntervalRaw string `mapstructure:"SWEEP_INTERVAL"`
	// Env is the application environment (e.g. "development", "production"). Refresh cookies are Secure outside development.
	Env string `mapstructure:"APP_ENV"`

	// Audit pipeline (optional). When Kafka brokers are set, the server emits audit events to Kafka.
	// KafkaBrokers is a comma-separated list of broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for audit events.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the audit worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is the Loki base URL the audit worker pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// OTLPEndpoint enables OpenTelemetry export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "session-control-plane")
	v.SetDefault("JWT_AUDIENCE", "session-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("SESSION_TTL", "720h") // 30d
	v.SetDefault("ARGON2_MEMORY_KIB", 64*1024)
	v.SetDefault("ARGON2_PASSES", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("SWEEP_INTERVAL", "1h")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "session-audit")
	v.SetDefault("KAFKA_GROUP_ID", "session-audit-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.Argon2MemoryKiB != 0 && cfg.Argon2MemoryKiB < 8*1024 {
		return nil, errors.New("config: ARGON2_MEMORY_KIB must be at least 8192")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or
// invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// SessionTTL parses SessionTTLRaw as a time.Duration. Returns 720h if unset
// or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// SweepInterval parses SweepIntervalRaw as a time.Duration. Returns 0 when
// unset or invalid; callers treat 0 as "sweep disabled".
func (c *Config) SweepInterval() time.Duration {
	if c.SweepIntervalRaw == "" {
		return 0
	}
	d, err := time.ParseDuration(c.SweepIntervalRaw)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// SecureCookies reports whether refresh cookies should be marked Secure.
func (c *Config) SecureCookies() bool {
	return c.Env != "" && c.Env != "development"
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated
// config. Used to decide if the audit pipeline is enabled (non-empty list)
// and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
