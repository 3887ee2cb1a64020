// Package config loads settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Each consumer depends on the narrow interface it needs; *Config implements all of them.

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitPerMinute() int
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketQuotePDFs() string
	IsMinIOEnabled() bool
}

// GotenbergConfig provides settings for the Gotenberg HTML-to-PDF service.
type GotenbergConfig interface {
	GetGotenbergURL() string
	GetGotenbergUsername() string
	GetGotenbergPassword() string
	IsGotenbergEnabled() bool
}

// SchedulerConfig provides settings for the asynq-backed background jobs.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetQuoteExpiryInterval() time.Duration
}

// QuoteConfig provides settings for the quotes module.
type QuoteConfig interface {
	GetQuoteNumberRetries() int
	GetCurrency() string
	GetLocale() string
	GetPhoneRegion() string
}

// Config holds all application configuration values.
type Config struct {
	Env                 string
	HTTPAddr            string
	DatabaseURL         string
	MigrationsEnabled   bool
	JWTAccessSecret     string
	CORSAllowAll        bool
	CORSOrigins         []string
	CORSAllowCreds      bool
	RateLimitPerMinute  int
	AppBaseURL          string
	EmailEnabled        bool
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	EmailFromName       string
	EmailFromAddress    string
	MinIOEndpoint       string
	MinIOAccessKey      string
	MinIOSecretKey      string
	MinIOUseSSL         bool
	MinIOMaxFileSize    int64
	MinioBucketQuotePDF string
	GotenbergURL        string
	GotenbergUsername   string
	GotenbergPassword   string
	RedisURL            string
	RedisTLSInsecure    bool
	AsynqQueueName      string
	AsynqConcurrency    int
	QuoteExpiryInterval time.Duration
	QuoteNumberRetries  int
	Currency            string
	Locale              string
	PhoneRegion         string
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string        { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool      { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string   { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool    { return c.CORSAllowCreds }
func (c *Config) GetRateLimitPerMinute() int { return c.RateLimitPerMinute }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string        { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string       { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string       { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool            { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64      { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketQuotePDFs() string { return c.MinioBucketQuotePDF }
func (c *Config) IsMinIOEnabled() bool            { return c.MinIOEndpoint != "" }

// GotenbergConfig implementation
func (c *Config) GetGotenbergURL() string      { return c.GotenbergURL }
func (c *Config) GetGotenbergUsername() string { return c.GotenbergUsername }
func (c *Config) GetGotenbergPassword() string { return c.GotenbergPassword }
func (c *Config) IsGotenbergEnabled() bool     { return c.GotenbergURL != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                   { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool             { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string             { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int              { return c.AsynqConcurrency }
func (c *Config) GetQuoteExpiryInterval() time.Duration { return c.QuoteExpiryInterval }

// QuoteConfig implementation
func (c *Config) GetQuoteNumberRetries() int { return c.QuoteNumberRetries }
func (c *Config) GetCurrency() string        { return c.Currency }
func (c *Config) GetLocale() string          { return c.Locale }
func (c *Config) GetPhoneRegion() string     { return c.PhoneRegion }

// Load reads configuration from the environment, after merging a .env file
// when one exists. Malformed numbers and durations are reported together
// rather than silently zeroed.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := &envReader{}
	origins := env.list("CORS_ORIGINS", "http://localhost:4200")
	smtpHost := env.str("SMTP_HOST", "")

	cfg := &Config{
		Env:                 env.str("APP_ENV", "development"),
		HTTPAddr:            env.str("HTTP_ADDR", ":8080"),
		DatabaseURL:         env.str("DATABASE_URL", ""),
		MigrationsEnabled:   env.flag("MIGRATIONS_ENABLED", true),
		JWTAccessSecret:     env.str("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:        env.flag("CORS_ALLOW_ALL", false) || slices.Contains(origins, "*"),
		CORSOrigins:         origins,
		CORSAllowCreds:      env.flag("CORS_ALLOW_CREDENTIALS", true),
		RateLimitPerMinute:  env.integer("RATE_LIMIT_PER_MINUTE", 300),
		AppBaseURL:          strings.TrimRight(env.str("APP_BASE_URL", "http://localhost:4200"), "/"),
		EmailEnabled:        env.flag("EMAIL_ENABLED", true) && smtpHost != "",
		SMTPHost:            smtpHost,
		SMTPPort:            env.integer("SMTP_PORT", 587),
		SMTPUsername:        env.str("SMTP_USERNAME", ""),
		SMTPPassword:        env.str("SMTP_PASSWORD", ""),
		EmailFromName:       env.str("EMAIL_FROM_NAME", "MedCRM"),
		EmailFromAddress:    env.str("EMAIL_FROM_ADDRESS", ""),
		MinIOEndpoint:       env.str("MINIO_ENDPOINT", ""),
		MinIOAccessKey:      env.str("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:      env.str("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:         env.flag("MINIO_USE_SSL", false),
		MinIOMaxFileSize:    int64(env.integer("MINIO_MAX_FILE_SIZE", 20<<20)),
		MinioBucketQuotePDF: env.str("MINIO_BUCKET_QUOTE_PDFS", "quote-pdfs"),
		GotenbergURL:        env.str("GOTENBERG_URL", ""),
		GotenbergUsername:   env.str("GOTENBERG_USERNAME", ""),
		GotenbergPassword:   env.str("GOTENBERG_PASSWORD", ""),
		RedisURL:            env.str("REDIS_URL", ""),
		RedisTLSInsecure:    env.flag("REDIS_TLS_INSECURE", false),
		AsynqQueueName:      env.str("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:    env.integer("ASYNQ_CONCURRENCY", 5),
		QuoteExpiryInterval: env.duration("QUOTE_EXPIRY_INTERVAL", 15*time.Minute),
		QuoteNumberRetries:  max(env.integer("QUOTE_NUMBER_RETRIES", 5), 1),
		Currency:            env.str("QUOTE_CURRENCY", "EUR"),
		Locale:              env.str("QUOTE_LOCALE", "fr-FR"),
		PhoneRegion:         strings.ToUpper(env.str("PHONE_DEFAULT_REGION", "FR")),
	}

	if err := errors.Join(append(env.errs, cfg.validate()...)...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTAccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if c.EmailEnabled && c.EmailFromAddress == "" {
		errs = append(errs, errors.New("EMAIL_FROM_ADDRESS is required when email is enabled"))
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		errs = append(errs, errors.New("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true"))
	}
	if c.QuoteExpiryInterval <= 0 {
		errs = append(errs, errors.New("QUOTE_EXPIRY_INTERVAL must be positive"))
	}
	return errs
}

// envReader reads typed values and remembers every value it could not parse.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return fallback
}

func (r *envReader) flag(key string, fallback bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a boolean", key, raw))
		return fallback
	}
	return v
}

func (r *envReader) integer(key string, fallback int) int {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not an integer", key, raw))
		return fallback
	}
	return v
}

func (r *envReader) duration(key string, fallback time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %q is not a duration", key, raw))
		return fallback
	}
	return v
}

// list splits a comma separated value, dropping blanks.
func (r *envReader) list(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(r.str(key, fallback), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
