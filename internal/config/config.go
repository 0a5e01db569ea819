// Package config loads server configuration from environment variables and
// the YAML bot registry.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the admin server
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Storage
	DatabasePath string

	// Pipeline scripts invoked by job runners
	PythonBin  string
	ScriptsDir string

	// Bot registry
	BotsConfigPath string

	// Notification configuration
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	AlertWebhookURL   string

	// Export archive (Azure Blob)
	StorageAccount   string
	StorageContainer string

	// Schedules (cron expressions with a seconds field; empty disables)
	SyncReportSchedule string
	ExportSchedule     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8000"),
		Debug: getBoolEnv("DEBUG", false),

		DatabasePath: getEnv("DATABASE_PATH", "data/leads.db"),

		PythonBin:  getEnv("PYTHON_BIN", "python3"),
		ScriptsDir: getEnv("SCRIPTS_DIR", "scripts"),

		BotsConfigPath: getEnv("BOTS_CONFIG", "bots.yaml"),

		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		AlertWebhookURL:   getEnv("ALERT_WEBHOOK_URL", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "lead-exports"),

		SyncReportSchedule: getEnv("SYNC_REPORT_SCHEDULE", "0 0 7 * * *"),
		ExportSchedule:     getEnv("EXPORT_SCHEDULE", "0 0 6 * * MON"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
