// Package config loads storefront configuration from YAML, .env and the environment.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when STOREFRONT_CONFIG is unset.
const DefaultPath = "config/storefront.yaml"

// Backend selects the persistence implementation.
type Backend string

const (
	BackendSupabase Backend = "supabase"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// Config is the full process configuration.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Backend   Backend        `yaml:"backend" env:"STOREFRONT_BACKEND"`
	Supabase  SupabaseConfig `yaml:"supabase"`
	Postgres  PostgresConfig `yaml:"postgres"`
	Redis     RedisConfig    `yaml:"redis"`
	Kafka     KafkaConfig    `yaml:"kafka"`
	Mail      MailConfig     `yaml:"mail"`
	Admin     AdminConfig    `yaml:"admin"`
	AppSecret string         `yaml:"app_secret" env:"APP_SECRET"`
	Logging   LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"STOREFRONT_ADDR"`
	PublicURL       string        `yaml:"public_url" env:"SITE_URL"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	SessionTTL      time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	SecureCookies   bool          `yaml:"secure_cookies" env:"SECURE_COOKIES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type SupabaseConfig struct {
	URL        string `yaml:"url" env:"SUPABASE_URL"`
	ServiceKey string `yaml:"service_key" env:"SUPABASE_SERVICE_ROLE_KEY"`
	AnonKey    string `yaml:"anon_key" env:"SUPABASE_ANON_KEY"`
	JWTSecret  string `yaml:"jwt_secret" env:"SUPABASE_JWT_SECRET"`
	Audience   string `yaml:"audience" env:"SUPABASE_JWT_AUDIENCE"`
	MaxRetries int    `yaml:"max_retries" env:"SUPABASE_MAX_RETRIES"`
}

type PostgresConfig struct {
	DSN          string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	Migrate      bool   `yaml:"migrate" env:"DATABASE_MIGRATE"`
}

// RedisConfig is optional; an empty Addr disables the catalog cache and the submit lock.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL"`
	LockTTL  time.Duration `yaml:"lock_ttl" env:"REDIS_LOCK_TTL"`
}

// KafkaConfig is optional; no brokers means events are dropped.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic        string        `yaml:"topic" env:"KAFKA_TOPIC"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"KAFKA_WRITE_TIMEOUT"`
}

type MailConfig struct {
	ResendAPIKey  string `yaml:"resend_api_key" env:"RESEND_API_KEY"`
	ResendURL     string `yaml:"resend_url" env:"RESEND_URL"`
	From          string `yaml:"from" env:"MAIL_FROM"`
	OperatorEmail string `yaml:"operator_email" env:"ADMIN_EMAIL"`
	RetrySchedule string `yaml:"retry_schedule" env:"MAIL_RETRY_SCHEDULE"`
	MaxAttempts   int    `yaml:"max_attempts" env:"MAIL_MAX_ATTEMPTS"`
}

type AdminConfig struct {
	Emails  []string `yaml:"emails" env:"ADMIN_EMAILS"`
	UserIDs []string `yaml:"user_ids" env:"ADMIN_USER_IDS"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Default returns a configuration that runs locally against the in-memory backend.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			PublicURL:       "http://localhost:3000",
			AllowedOrigins:  []string{"http://localhost:3000"},
			RateLimitRPS:    10,
			RateLimitBurst:  20,
			SessionTTL:      30 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Backend: BackendMemory,
		Supabase: SupabaseConfig{
			Audience:   "authenticated",
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			MaxOpenConns: 10,
		},
		Redis: RedisConfig{
			CacheTTL: 10 * time.Minute,
			LockTTL:  30 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic:        "storefront.orders",
			WriteTimeout: 5 * time.Second,
		},
		Mail: MailConfig{
			ResendURL:     "https://api.resend.com",
			From:          "EEL Studio <onboarding@resend.dev>",
			RetrySchedule: "@every 5m",
			MaxAttempts:   5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (a missing file
// is not an error), then .env, then environment overrides. An empty path uses
// STOREFRONT_CONFIG or DefaultPath.
func Load(path string) (*Config, error) {
	// .env only fills variables the process does not already have.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("STOREFRONT_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := envdecode.Decode(cfg); err != nil && !stderrors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	c.Server.AllowedOrigins = trimAll(c.Server.AllowedOrigins)
	c.Kafka.Brokers = trimAll(c.Kafka.Brokers)
	c.Admin.Emails = trimAll(c.Admin.Emails)
	c.Admin.UserIDs = trimAll(c.Admin.UserIDs)
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")
}

// trimAll also splits comma lists, so ADMIN_EMAILS="a@x,b@x" works as well as ';'.
func trimAll(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			errs = append(errs, fmt.Errorf("supabase backend requires supabase.url and supabase.service_key"))
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, fmt.Errorf("postgres backend requires postgres.dsn"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if len(c.AppSecret) < 16 {
		errs = append(errs, fmt.Errorf("app_secret must be at least 16 bytes"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, fmt.Errorf("server.addr is required"))
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, fmt.Errorf("server.session_ttl must be positive"))
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, fmt.Errorf("server rate limits must not be negative"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, fmt.Errorf("kafka.topic is required when brokers are set"))
	}
	if c.Mail.ResendAPIKey != "" && c.Mail.OperatorEmail == "" {
		errs = append(errs, fmt.Errorf("mail.operator_email is required when mail is enabled"))
	}
	if c.Mail.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("mail.max_attempts must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", stderrors.Join(errs...))
	}
	return nil
}

// MailEnabled reports whether notifications can be delivered.
func (c *Config) MailEnabled() bool { return c.Mail.ResendAPIKey != "" }

// AuthEnabled reports whether bearer tokens can be verified.
func (c *Config) AuthEnabled() bool { return c.Supabase.JWTSecret != "" }
