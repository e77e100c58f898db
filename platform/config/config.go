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
// Tokens are issued by the external auth provider; this service only verifies them.
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

// DatastoreConfig provides settings for the external tabular datastore.
type DatastoreConfig interface {
	GetDatastoreURL() string
	GetDatastoreAPIKey() string
	GetDatastoreTables() DatastoreTables
}

// RideWebhookConfig provides the outbound ride webhook endpoints.
type RideWebhookConfig interface {
	GetZoneLookupURL() string
	GetZoneLookupToken() string
	GetProductLookupURL() string
	GetDispatchURL() string
	GetWebhookAPIKey() string
	GetWebhookTimeout() time.Duration
}

// SessionConfig provides settings for wizard session storage.
type SessionConfig interface {
	GetRedisURL() string
	GetWizardSessionTTL() time.Duration
	GetSubmissionLockTTL() time.Duration
}

// SchedulerConfig provides settings for the asynq background job queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SignatureExportConfig provides settings for the signature export webhook.
type SignatureExportConfig interface {
	GetSignatureExportURL() string
	GetWebhookAPIKey() string
	GetWebhookTimeout() time.Duration
	IsSignatureExportEnabled() bool
}

// HistoryRetentionConfig provides how long ride submission records are kept.
type HistoryRetentionConfig interface {
	GetHistoryRetentionSuccess() time.Duration
	GetHistoryRetentionFailure() time.Duration
}

// DatastoreTables names the tables read from the external datastore.
type DatastoreTables struct {
	Clients    string
	Addresses  string
	Contracts  string
	Signatures string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	JWTAccessSecret    string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	DatastoreURL       string
	DatastoreAPIKey    string
	DatastoreTables    DatastoreTables
	ZoneLookupURL      string
	ZoneLookupToken    string
	ProductLookupURL   string
	DispatchURL        string
	SignatureExportURL string
	WebhookAPIKey      string
	WebhookTimeout     time.Duration
	RedisURL           string
	RedisTLSInsecure   bool
	WizardSessionTTL   time.Duration
	SubmissionLockTTL  time.Duration
	AsynqQueueName     string
	AsynqConcurrency   int
	HistorySuccessTTL  time.Duration
	HistoryFailureTTL  time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// DatastoreConfig implementation
func (c *Config) GetDatastoreURL() string             { return c.DatastoreURL }
func (c *Config) GetDatastoreAPIKey() string          { return c.DatastoreAPIKey }
func (c *Config) GetDatastoreTables() DatastoreTables { return c.DatastoreTables }

// RideWebhookConfig implementation
func (c *Config) GetZoneLookupURL() string         { return c.ZoneLookupURL }
func (c *Config) GetZoneLookupToken() string       { return c.ZoneLookupToken }
func (c *Config) GetProductLookupURL() string      { return c.ProductLookupURL }
func (c *Config) GetDispatchURL() string           { return c.DispatchURL }
func (c *Config) GetWebhookAPIKey() string         { return c.WebhookAPIKey }
func (c *Config) GetWebhookTimeout() time.Duration { return c.WebhookTimeout }

// SessionConfig implementation
func (c *Config) GetRedisURL() string                 { return c.RedisURL }
func (c *Config) GetWizardSessionTTL() time.Duration  { return c.WizardSessionTTL }
func (c *Config) GetSubmissionLockTTL() time.Duration { return c.SubmissionLockTTL }

// SchedulerConfig implementation
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// SignatureExportConfig implementation
func (c *Config) GetSignatureExportURL() string { return c.SignatureExportURL }
func (c *Config) IsSignatureExportEnabled() bool {
	return c.SignatureExportURL != "" && c.RedisURL != ""
}

// HistoryRetentionConfig implementation
func (c *Config) GetHistoryRetentionSuccess() time.Duration { return c.HistorySuccessTTL }
func (c *Config) GetHistoryRetentionFailure() time.Duration { return c.HistoryFailureTTL }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		DatastoreURL:    strings.TrimRight(getEnv("DATASTORE_URL", ""), "/"),
		DatastoreAPIKey: getEnv("DATASTORE_API_KEY", ""),
		DatastoreTables: DatastoreTables{
			Clients:    getEnv("DATASTORE_TABLE_CLIENTS", "Clients"),
			Addresses:  getEnv("DATASTORE_TABLE_ADDRESSES", "Addresses"),
			Contracts:  getEnv("DATASTORE_TABLE_CONTRACTS", "Contracts"),
			Signatures: getEnv("DATASTORE_TABLE_SIGNATURES", "Signatures"),
		},
		ZoneLookupURL:      getEnv("ZONE_LOOKUP_WEBHOOK_URL", ""),
		ZoneLookupToken:    getEnv("ZONE_LOOKUP_TOKEN", ""),
		ProductLookupURL:   getEnv("PRODUCT_LOOKUP_WEBHOOK_URL", ""),
		DispatchURL:        getEnv("DISPATCH_WEBHOOK_URL", ""),
		SignatureExportURL: getEnv("SIGNATURE_EXPORT_WEBHOOK_URL", ""),
		WebhookAPIKey:      getEnv("WEBHOOK_API_KEY", ""),
		WebhookTimeout:     mustDuration(getEnv("WEBHOOK_TIMEOUT", "30s")),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		WizardSessionTTL:   mustDuration(getEnv("WIZARD_SESSION_TTL", "2h")),
		SubmissionLockTTL:  mustDuration(getEnv("SUBMISSION_LOCK_TTL", "2m")),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		HistorySuccessTTL:  mustDuration(getEnv("HISTORY_RETENTION_SUCCESS", "4320h")),
		HistoryFailureTTL:  mustDuration(getEnv("HISTORY_RETENTION_FAILURE", "720h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.DatastoreURL == "" || cfg.DatastoreAPIKey == "" {
		return nil, fmt.Errorf("DATASTORE_URL and DATASTORE_API_KEY are required")
	}
	if cfg.ZoneLookupURL == "" || cfg.ProductLookupURL == "" || cfg.DispatchURL == "" {
		return nil, fmt.Errorf("ZONE_LOOKUP_WEBHOOK_URL, PRODUCT_LOOKUP_WEBHOOK_URL and DISPATCH_WEBHOOK_URL are required")
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"WEBHOOK_TIMEOUT", cfg.WebhookTimeout},
		{"WIZARD_SESSION_TTL", cfg.WizardSessionTTL},
		{"SUBMISSION_LOCK_TTL", cfg.SubmissionLockTTL},
		{"HISTORY_RETENTION_SUCCESS", cfg.HistorySuccessTTL},
		{"HISTORY_RETENTION_FAILURE", cfg.HistoryFailureTTL},
	} {
		if d.value <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration", d.name)
		}
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
