package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds service configuration.
type Config struct {
	// Store selects the storage backend: postgres, sqlite or memory.
	Store      string `env:"STORE" envDefault:"postgres"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"facilityhub.db"`
	Postgres   PostgresOptions

	ServerAddr          string        `env:"SERVER_ADDR" envDefault:"0.0.0.0:8080"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"facilityhub_session"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`

	// SigningKeys is a comma separated list of keyId:hex entries.
	SigningKeys   string        `env:"HISTORY_SIGNING_KEYS"`
	SigningKeyID  string        `env:"HISTORY_SIGNING_KEY_ID"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
	ReferenceTTL  time.Duration `env:"REFERENCE_CACHE_TTL" envDefault:"1m"`

	RateLimit      string   `env:"RATE_LIMIT" envDefault:"300-M"`
	CORSOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	MetricsEnabled bool     `env:"METRICS_ENABLED" envDefault:"true"`

	Tx      TxOptions
	Sweeper SweeperOptions
	Redis   RedisOptions
	NATS    NATSOptions
	Log     LogOptions
	Tracing TracingOptions
}

type PostgresOptions struct {
	URL      string `env:"DATABASE_URL"`
	User     string `env:"POSTGRES_USER" envDefault:"facility_hub"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"facility_hub_pass"`
	DB       string `env:"POSTGRES_DB" envDefault:"facility_hub"`
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	SSLMode  string `env:"DATABASE_SSLMODE" envDefault:"disable"`
	MaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"20"`
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the parts.
func (p PostgresOptions) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type TxOptions struct {
	MaxAttempts int           `env:"TX_MAX_ATTEMPTS" envDefault:"5"`
	BaseBackoff time.Duration `env:"TX_BASE_BACKOFF" envDefault:"5ms"`
	MaxBackoff  time.Duration `env:"TX_MAX_BACKOFF" envDefault:"250ms"`
}

type SweeperOptions struct {
	Enabled     bool          `env:"SWEEPER_ENABLED" envDefault:"true"`
	Interval    time.Duration `env:"SWEEPER_INTERVAL" envDefault:"5m"`
	Concurrency int           `env:"SWEEPER_CONCURRENCY" envDefault:"4"`
	PageSize    int           `env:"SWEEPER_PAGE_SIZE" envDefault:"200"`
}

type RedisOptions struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Prefix   string `env:"REDIS_PREFIX" envDefault:"facilityhub:"`
}

type NATSOptions struct {
	URL           string `env:"NATS_URL"`
	SubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"facilityhub.request"`
}

type LogOptions struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"json"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
}

type TracingOptions struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SamplingRate float64 `env:"OTEL_SAMPLING_RATE" envDefault:"1"`
	ServiceName  string  `env:"OTEL_SERVICE_NAME" envDefault:"facility-hub"`
	Environment  string  `env:"ENVIRONMENT" envDefault:"development"`
}

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Load reads configuration from the environment after loading any env files
// that exist. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	existing := make([]string, 0, len(envFiles))
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid STORE %q", c.Store)
	}
	if c.Tx.MaxAttempts < 1 {
		return errors.New("TX_MAX_ATTEMPTS must be at least 1")
	}
	if c.Sweeper.Interval <= 0 {
		return errors.New("SWEEPER_INTERVAL must be positive")
	}
	if c.Sweeper.Concurrency < 1 {
		return errors.New("SWEEPER_CONCURRENCY must be at least 1")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}
