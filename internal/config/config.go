package config

import (
	"log"
	"os"
	"strconv"
)

// Billing holds the invoicing knobs injected into the billing components.
// Immutable after Load.
type Billing struct {
	InvoicePrefix  string
	InvoiceDueDays int
}

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string

	SessionSecret string
	SendgridKey   string
	MailFrom      string
	MailFromName  string

	LogLevel  string
	LogFormat string

	Billing Billing
}

// Load reads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (loaded by the caller) > default.
func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseDSN:   getEnv("DATABASE_DSN", "factuur.db"),
		Env:           getEnv("APP_ENV", "development"),
		SessionSecret: getEnv("SESSION_SECRET", "devsessionsecret"),
		SendgridKey:   getEnv("SENDGRID_API_KEY", ""),
		MailFrom:      getEnv("MAIL_FROM", "noreply@factuur.local"),
		MailFromName:  getEnv("MAIL_FROM_NAME", "Factuur"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		Billing: Billing{
			InvoicePrefix:  getEnv("INVOICE_PREFIX", "INV-"),
			InvoiceDueDays: getEnvInt("INVOICE_DUE_DAYS", 14),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid integer for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}
