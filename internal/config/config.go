package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/SONIX-Kelompok-6/sonix-be/pkg/config"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Record store drivers.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the SONIX API and mailer.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8000"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"sonix"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"sonix_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"sonix"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Connection pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Record store
	RecordStoreDriver     string        `env:"RECORD_STORE_DRIVER" envDefault:"rest"`
	SupabaseURL           string        `env:"SUPABASE_URL"`
	SupabaseKey           string        `env:"SUPABASE_KEY"`
	RecordStoreTimeout    time.Duration `env:"RECORD_STORE_TIMEOUT" envDefault:"10s"`
	RecordStoreMaxRetries int           `env:"RECORD_STORE_MAX_RETRIES" envDefault:"2"`
	RecordStoreSeedFile   string        `env:"RECORD_STORE_SEED_FILE"`

	// Identity provider
	OTPTTL         time.Duration `env:"OTP_TTL" envDefault:"10m"`
	OTPLength      int           `env:"OTP_LENGTH" envDefault:"6"`
	OTPMaxAttempts int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5"`
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL" envDefault:"30m"`

	// Rate limiting of the OTP resend and forgot-password routes, per client IP
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"0.2"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"3"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// SMTP (mailer)
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@sonix.local"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"true"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load sonix config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if !c.IsDevelopment() {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
		}
	}
	if c.JWTAccessExpiry <= 0 || c.JWTRefreshExpiry <= 0 {
		return fmt.Errorf("JWT token expiries must be positive")
	}

	switch c.RecordStoreDriver {
	case DriverREST:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the %q record store", DriverREST)
		}
		if _, err := url.ParseRequestURI(c.SupabaseURL); err != nil {
			return fmt.Errorf("invalid SUPABASE_URL %q: %w", c.SupabaseURL, err)
		}
	case DriverPostgres:
	case DriverMemory:
		if !c.IsDevelopment() {
			return fmt.Errorf("the %q record store is only allowed in development", DriverMemory)
		}
	default:
		return fmt.Errorf("RECORD_STORE_DRIVER must be one of rest, postgres, memory, got %q", c.RecordStoreDriver)
	}
	if c.RecordStoreTimeout <= 0 {
		return fmt.Errorf("RECORD_STORE_TIMEOUT must be positive")
	}
	if c.RecordStoreMaxRetries < 0 {
		return fmt.Errorf("RECORD_STORE_MAX_RETRIES must not be negative")
	}

	if c.OTPTTL < time.Minute {
		return fmt.Errorf("OTP_TTL must be at least 1m, got %s", c.OTPTTL)
	}
	if c.OTPLength < 4 || c.OTPLength > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTPLength)
	}
	if c.OTPMaxAttempts < 1 {
		return fmt.Errorf("OTP_MAX_ATTEMPTS must be at least 1")
	}
	if c.ResetTokenTTL <= 0 {
		return fmt.Errorf("RESET_TOKEN_TTL must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// ValidateMailer checks the settings only the mailer worker needs.
func (c *Config) ValidateMailer() error {
	if !c.KafkaEnabled {
		return fmt.Errorf("the mailer consumes Kafka, set KAFKA_ENABLED=true")
	}
	if c.SMTPHost == "" && !c.IsDevelopment() {
		return fmt.Errorf("SMTP_HOST is required in %q mode", c.Environment)
	}
	if c.SMTPHost != "" && (c.SMTPPort < 1 || c.SMTPPort > 65535) {
		return fmt.Errorf("invalid SMTP port: %d", c.SMTPPort)
	}
	return nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// RateLimitEvery returns the refill interval of the rate limiter.
func (c *Config) RateLimitEvery() time.Duration {
	return time.Duration(float64(time.Second) / c.RateLimitRPS)
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
