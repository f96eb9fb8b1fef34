// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetResendAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetBusinessNotifyAddress() string
	IsEmailEnabled() bool
}

// TaskBoardConfig provides settings for the task board integration.
type TaskBoardConfig interface {
	GetTaskBoardAPIKey() string
	GetTaskBoardToken() string
	GetTaskBoardListID() string
	IsTaskBoardEnabled() bool
}

// RecordStoreConfig provides settings for the relational record store.
type RecordStoreConfig interface {
	GetDatabaseURL() string
	IsRecordStoreEnabled() bool
}

// CRMConfig provides settings for the CRM contact upsert integration.
type CRMConfig interface {
	GetCRMAPIKey() string
	GetCRMLocationID() string
	IsCRMEnabled() bool
}

// PaymentsConfig provides settings for the payment processor.
type PaymentsConfig interface {
	GetStripeSecretKey() string
	GetStripeWebhookSecret() string
	IsInvoiceIssuerEnabled() bool
}

// SiteConfig provides the publishable values exposed to the static site.
type SiteConfig interface {
	GetStripePublishableKey() string
	GetMapsAPIKey() string
}

// BusinessConfig provides business identity settings.
type BusinessConfig interface {
	GetBusinessName() string
	GetBusinessConfigFile() string
}

// =============================================================================
// Config
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	CORSAllowAll bool
	CORSOrigins  []string

	ResendAPIKey          string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	BusinessNotifyAddress string

	TaskBoardAPIKey string
	TaskBoardToken  string
	TaskBoardListID string

	DatabaseURL string

	CRMAPIKey     string
	CRMLocationID string

	StripeSecretKey      string
	StripeWebhookSecret  string
	StripePublishableKey string

	MapsAPIKey string

	BusinessName       string
	BusinessConfigFile string
}

// Load reads configuration from the environment (and .env if present).
// Every integration is independently optional; the email credential is the
// one mandatory integration, but its absence is surfaced per-request as a
// server configuration error rather than refusing to start, so the health
// and site-config endpoints stay up.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "true"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:          getEnv("APP_ENV", "development"),
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll: corsAllowAll,
		CORSOrigins:  corsOrigins,

		ResendAPIKey:          getEnv("RESEND_API_KEY", ""),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              getEnvInt("SMTP_PORT", 587),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Hewitt Memorials"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		BusinessNotifyAddress: getEnv("BUSINESS_NOTIFY_ADDRESS", ""),

		TaskBoardAPIKey: getEnv("TRELLO_API_KEY", ""),
		TaskBoardToken:  getEnv("TRELLO_TOKEN", ""),
		TaskBoardListID: getEnv("TRELLO_LIST_ID", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CRMAPIKey:     getEnv("CRM_API_KEY", ""),
		CRMLocationID: getEnv("CRM_LOCATION_ID", ""),

		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),

		MapsAPIKey: getEnv("MAPS_API_KEY", ""),

		BusinessName:       getEnv("BUSINESS_NAME", "Hewitt Memorials"),
		BusinessConfigFile: getEnv("BUSINESS_CONFIG_FILE", ""),
	}

	return cfg, nil
}

// HTTPConfig
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// EmailConfig
func (c *Config) GetResendAPIKey() string          { return c.ResendAPIKey }
func (c *Config) GetSMTPHost() string              { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                 { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string          { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string          { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string         { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string      { return c.EmailFromAddress }
func (c *Config) GetBusinessNotifyAddress() string { return c.BusinessNotifyAddress }
func (c *Config) IsEmailEnabled() bool {
	return (c.ResendAPIKey != "" || c.SMTPHost != "") && c.EmailFromAddress != "" && c.BusinessNotifyAddress != ""
}

// TaskBoardConfig
func (c *Config) GetTaskBoardAPIKey() string { return c.TaskBoardAPIKey }
func (c *Config) GetTaskBoardToken() string  { return c.TaskBoardToken }
func (c *Config) GetTaskBoardListID() string { return c.TaskBoardListID }
func (c *Config) IsTaskBoardEnabled() bool {
	return c.TaskBoardAPIKey != "" && c.TaskBoardToken != "" && c.TaskBoardListID != ""
}

// RecordStoreConfig
func (c *Config) GetDatabaseURL() string    { return c.DatabaseURL }
func (c *Config) IsRecordStoreEnabled() bool { return c.DatabaseURL != "" }

// CRMConfig
func (c *Config) GetCRMAPIKey() string     { return c.CRMAPIKey }
func (c *Config) GetCRMLocationID() string { return c.CRMLocationID }
func (c *Config) IsCRMEnabled() bool       { return c.CRMAPIKey != "" }

// PaymentsConfig
func (c *Config) GetStripeSecretKey() string     { return c.StripeSecretKey }
func (c *Config) GetStripeWebhookSecret() string { return c.StripeWebhookSecret }
func (c *Config) IsInvoiceIssuerEnabled() bool   { return c.StripeSecretKey != "" }

// SiteConfig
func (c *Config) GetStripePublishableKey() string { return c.StripePublishableKey }
func (c *Config) GetMapsAPIKey() string           { return c.MapsAPIKey }

// BusinessConfig
func (c *Config) GetBusinessName() string       { return c.BusinessName }
func (c *Config) GetBusinessConfigFile() string { return c.BusinessConfigFile }

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fallback
	}
	return parsed
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
