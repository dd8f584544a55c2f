// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// OpsAddr is the HTTP listener for /metrics, /healthz and /readyz (e.g. :9090). Empty disables it.
	OpsAddr string `mapstructure:"OPS_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "govportal-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "govportal-admin").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "30m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) applied to OTP codes; default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// OTPTTL is how long an issued code stays valid (e.g. "10m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// OTPMaxAttempts is the number of wrong guesses after which a challenge is locked out.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPRequestRate is the number of codes one email may request per minute.
	OTPRequestRate float64 `mapstructure:"OTP_REQUEST_RATE"`
	// OTPRequestBurst is the token-bucket burst for code requests per email.
	OTPRequestBurst int `mapstructure:"OTP_REQUEST_BURST"`
	// OTPReturnToClient when true enables dev OTP mode: no email is sent, codes are kept in memory
	// and served by DevService/GetOTP. Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// NotifyURL is the notification gateway endpoint that delivers login codes by email.
	NotifyURL string `mapstructure:"NOTIFY_URL"`
	// NotifyAPIKey authenticates against the notification gateway.
	NotifyAPIKey string `mapstructure:"NOTIFY_API_KEY"`
	// NotifySender is the From address used for login code emails.
	NotifySender string `mapstructure:"NOTIFY_SENDER"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// OTLPEndpoint is the OpenTelemetry collector gRPC endpoint (e.g. localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS towards the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Auth events (optional). When Kafka brokers are set, the server emits auth events to Kafka.
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsTopic is the Kafka topic for auth events (default govportal-auth-events).
	AuthEventsTopic string `mapstructure:"AUTH_EVENTS_TOPIC"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("OPS_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "govportal-auth")
	v.SetDefault("JWT_AUDIENCE", "govportal-admin")
	v.SetDefault("JWT_ACCESS_TTL", "30m")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_REQUEST_RATE", 3)
	v.SetDefault("OTP_REQUEST_BURST", 3)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("NOTIFY_URL", "")
	v.SetDefault("NOTIFY_API_KEY", "")
	v.SetDefault("NOTIFY_SENDER", "no-reply@portal.gov")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("AUTH_EVENTS_TOPIC", "govportal-auth-events")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "govportal-auth-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}

	if cfg.OTPReturnToClient && cfg.Env == "production" {
		return nil, errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 10
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.OTPMaxAttempts <= 0 {
		return nil, errors.New("config: OTP_MAX_ATTEMPTS must be positive")
	}
	if cfg.OTPRequestRate < 0 || cfg.OTPRequestBurst < 0 {
		return nil, errors.New("config: OTP_REQUEST_RATE and OTP_REQUEST_BURST must not be negative")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// OTPLifetime parses OTPTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) OTPLifetime() time.Duration {
	d, err := time.ParseDuration(c.OTPTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the auth event stream is enabled (non-empty list) and to create the producer.
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

// AuthEnabled reports whether both JWT keys are configured.
func (c *Config) AuthEnabled() bool {
	return c != nil && c.JWTPrivateKey != "" && c.JWTPublicKey != ""
}
