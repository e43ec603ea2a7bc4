// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Webhook identity configuration
type Webhook struct {
	URL       string
	Activated bool
}

// Config holds all configuration for the application
type Config struct {
	// Log watching
	ServerlogFolder string
	TriggersPath    string
	ServerMapPath   string
	OffsetDBPath    string // empty keeps offsets in memory
	SkipExisting    bool
	WatchRetryDelay time.Duration

	// Actions
	ActionTimeout     time.Duration
	DatabasePath      string // SQLite player registry, empty disables it
	LinkCodeTTL       time.Duration
	LinkCodePurgeCron string
	SiteBaseURL       string

	// Discord webhooks, by identity
	Webhooks             map[string]Webhook
	WebhookRatePerMinute int

	// ClickHouse analytics, disabled when host is empty
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDB       string
	ClickHouseUser     string
	ClickHousePassword string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Status API, disabled when empty
	HTTPAddr string

	// Observability
	LogLevel       string
	LogFile        string
	LogConsole     bool
	TracingEnabled bool
	OTLPEndpoint   string
	OTLPProtocol   string
}

// Load reads a .env file when present, then the environment
func Load() (*Config, error) {
	// A missing .env is the normal case
	_ = godotenv.Load()

	cfg := &Config{
		ServerlogFolder: getEnv("SERVERLOG_FOLDER", ""),
		TriggersPath:    getEnv("TRIGGERS_PATH", "triggers.toml"),
		ServerMapPath:   getEnv("SERVER_MAP_PATH", "servers.yaml"),
		OffsetDBPath:    getEnv("OFFSET_DB_PATH", ""),
		SkipExisting:    getEnvBool("SKIP_EXISTING", false),
		WatchRetryDelay: getEnvDuration("WATCH_RETRY_DELAY", time.Second),

		ActionTimeout:     getEnvDuration("ACTION_TIMEOUT", 15*time.Second),
		DatabasePath:      getEnv("DATABASE_PATH", ""),
		LinkCodeTTL:       getEnvDuration("LINK_CODE_TTL", 10*time.Minute),
		LinkCodePurgeCron: getEnv("LINK_CODE_PURGE_CRON", "@every 5m"),
		SiteBaseURL:       getEnv("SITE_BASE_URL", "https://antredesloutres.fr"),

		Webhooks: map[string]Webhook{
			"otternel":    getEnvWebhook("OTTERNEL"),
			"mineotter":   getEnvWebhook("MINEOTTER_BOT"),
			"multiloutre": getEnvWebhook("MULTILOUTRE_BOT"),
		},
		WebhookRatePerMinute: getEnvInt("WEBHOOK_RATE_PER_MINUTE", 30),

		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", ""),
		ClickHousePort:     getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDB:       getEnv("CLICKHOUSE_DB", "otternel"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		BatchSize:          getEnvInt("BATCH_SIZE", 500),
		BatchFlushInterval: getEnvDuration("BATCH_FLUSH_INTERVAL", 5*time.Second),

		HTTPAddr: getEnv("HTTP_ADDR", ""),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
		LogConsole:     getEnvBool("LOG_CONSOLE", true),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", ""),
		OTLPProtocol:   getEnv("OTLP_PROTOCOL", "grpc"),
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.ServerlogFolder == "" {
		errs = append(errs, errors.New("SERVERLOG_FOLDER is required"))
	}
	if c.TriggersPath == "" {
		errs = append(errs, errors.New("TRIGGERS_PATH must not be empty"))
	}
	if c.WatchRetryDelay <= 0 {
		errs = append(errs, errors.New("WATCH_RETRY_DELAY must be positive"))
	}
	if c.ActionTimeout <= 0 {
		errs = append(errs, errors.New("ACTION_TIMEOUT must be positive"))
	}
	if c.LinkCodeTTL <= 0 {
		errs = append(errs, errors.New("LINK_CODE_TTL must be positive"))
	}
	if c.WebhookRatePerMinute < 1 {
		errs = append(errs, errors.New("WEBHOOK_RATE_PER_MINUTE must be at least 1"))
	}
	for identity, w := range c.Webhooks {
		if w.Activated && w.URL == "" {
			errs = append(errs, fmt.Errorf("webhook %s is activated but has no URL", identity))
		}
	}
	if c.ClickHouseHost != "" {
		if c.ClickHousePort <= 0 || c.ClickHousePort > 65535 {
			errs = append(errs, errors.New("CLICKHOUSE_PORT must be between 1 and 65535"))
		}
		if c.ClickHouseDB == "" {
			errs = append(errs, errors.New("CLICKHOUSE_DB is required when CLICKHOUSE_HOST is set"))
		}
		if c.BatchSize < 1 {
			errs = append(errs, errors.New("BATCH_SIZE must be at least 1"))
		}
	}
	if c.TracingEnabled && c.OTLPProtocol != "grpc" && c.OTLPProtocol != "http" {
		errs = append(errs, fmt.Errorf("OTLP_PROTOCOL must be grpc or http, got %q", c.OTLPProtocol))
	}

	return errors.Join(errs...)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("15s") or plain seconds ("15")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvWebhook reads <PREFIX>_WEBHOOK_URL and <PREFIX>_WEBHOOK_ACTIVATED
func getEnvWebhook(prefix string) Webhook {
	return Webhook{
		URL:       getEnv(prefix+"_WEBHOOK_URL", ""),
		Activated: getEnvBool(prefix+"_WEBHOOK_ACTIVATED", false),
	}
}
