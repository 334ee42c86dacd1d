// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

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
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetOperatorAlertAddress() string
}

// SchedulerConfig provides settings for the background job scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketCatalogAssets() string
	IsMinIOEnabled() bool
}

// HoursRange is a raw open/close pair for one weekday, in "HH:MM" form.
type HoursRange struct {
	Open  string
	Close string
}

// StudioConfig provides the scheduling policy knobs for the quote engine.
type StudioConfig interface {
	GetMaxQuotesPerDay() int
	GetStaleQuoteAge() time.Duration
	GetStudioHours() map[time.Weekday]HoursRange
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	EmailEnabled         bool
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	EmailFromName        string
	EmailFromAddress     string
	OperatorAlertAddress string

	RedisURL         string
	AsynqQueueName   string
	AsynqConcurrency int

	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinIOMaxFileSize         int64
	MinioBucketCatalogAssets string

	MaxQuotesPerDay int
	StaleQuoteAge   time.Duration
	StudioHours     map[time.Weekday]HoursRange
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool            { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string              { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                 { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string          { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string          { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string         { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string      { return c.EmailFromAddress }
func (c *Config) GetOperatorAlertAddress() string  { return c.OperatorAlertAddress }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string             { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string            { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string            { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                 { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64           { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketCatalogAssets() string  { return c.MinioBucketCatalogAssets }
func (c *Config) IsMinIOEnabled() bool                 { return c.MinIOEndpoint != "" }

// StudioConfig implementation
func (c *Config) GetMaxQuotesPerDay() int                        { return c.MaxQuotesPerDay }
func (c *Config) GetStaleQuoteAge() time.Duration                { return c.StaleQuoteAge }
func (c *Config) GetStudioHours() map[time.Weekday]HoursRange    { return c.StudioHours }

// defaultStudioHours matches the studio's published opening times. A weekday
// absent from the map means the studio is closed that day.
var defaultStudioHours = map[time.Weekday]HoursRange{
	time.Monday:    {Open: "08:00", Close: "21:00"},
	time.Tuesday:   {Open: "08:00", Close: "21:00"},
	time.Wednesday: {Open: "08:00", Close: "21:00"},
	time.Thursday:  {Open: "08:30", Close: "21:00"},
	time.Friday:    {Open: "08:00", Close: "21:00"},
	time.Saturday:  {Open: "08:00", Close: "21:00"},
	time.Sunday:    {Open: "11:00", Close: "21:00"},
}

var weekdayEnvNames = map[time.Weekday]string{
	time.Monday:    "MONDAY",
	time.Tuesday:   "TUESDAY",
	time.Wednesday: "WEDNESDAY",
	time.Thursday:  "THURSDAY",
	time.Friday:    "FRIDAY",
	time.Saturday:  "SATURDAY",
	time.Sunday:    "SUNDAY",
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		EmailEnabled:         emailEnabled && smtpHost != "",
		SMTPHost:             smtpHost,
		SMTPPort:             mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		EmailFromName:        getEnv("EMAIL_FROM_NAME", "Studiodesk"),
		EmailFromAddress:     getEnv("EMAIL_FROM_ADDRESS", ""),
		OperatorAlertAddress: getEnv("OPERATOR_ALERT_ADDRESS", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:         mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "10485760")),
		MinioBucketCatalogAssets: getEnv("MINIO_BUCKET_CATALOG_ASSETS", "catalog-assets"),

		MaxQuotesPerDay: mustInt(getEnv("MAX_QUOTES_PER_DAY", "5")),
		StaleQuoteAge:   time.Duration(mustInt(getEnv("STALE_QUOTE_AGE_DAYS", "30"))) * 24 * time.Hour,
		StudioHours:     loadStudioHours(),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.MaxQuotesPerDay < 1 {
		return nil, fmt.Errorf("MAX_QUOTES_PER_DAY must be at least 1")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// loadStudioHours builds the weekly hours table. Each day can be overridden
// with STUDIO_HOURS_<DAY>="08:00-21:00"; the literal "closed" removes the day.
func loadStudioHours() map[time.Weekday]HoursRange {
	hours := make(map[time.Weekday]HoursRange, len(defaultStudioHours))
	for day, rng := range defaultStudioHours {
		hours[day] = rng
	}

	for day, name := range weekdayEnvNames {
		raw := getEnv("STUDIO_HOURS_"+name, "")
		if raw == "" {
			continue
		}
		if strings.EqualFold(raw, "closed") {
			delete(hours, day)
			continue
		}
		open, close, ok := strings.Cut(raw, "-")
		if !ok {
			continue
		}
		hours[day] = HoursRange{Open: strings.TrimSpace(open), Close: strings.TrimSpace(close)}
	}

	return hours
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func mustInt(value string) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}

func mustInt64(value string) int64 {
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
