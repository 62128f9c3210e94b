// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/stockfolio/internal/utils"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Price provider implementations selectable with PRICE_PROVIDER
const (
	ProviderHTTP   = "http"
	ProviderNative = "native"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Directory holding holdings.db (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	PriceProvider  string // http or native; the other one is used as fallback
	YahooBaseURL   string
	YahooRateLimit int // requests per second

	APINinjasKey     string
	NinjasBaseURL    string
	MassiveAPIKey    string
	MassiveBaseURL   string
	MassivePageDelay time.Duration

	RequestTimeout time.Duration
	ReferenceTTL   time.Duration
	PriceTTL       time.Duration
	HistoryTTL     time.Duration

	PortfolioMaxConcurrency int
	PortfolioAlignment      string // index or calendar
	MarketTimezone          string

	RefreshSchedule  string   // cron spec with seconds
	RefreshExchanges []string // directories refreshed by the scheduler
	RefreshTimeout   time.Duration

	// Off-site backups of holdings.db; disabled when BackupBucket is empty
	BackupBucket        string
	BackupEndpoint      string // S3-compatible endpoint, empty for AWS
	BackupRegion        string
	BackupAccessKey     string
	BackupSecretKey     string
	BackupSchedule      string
	BackupRetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  dataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		PriceProvider:  strings.ToLower(getEnv("PRICE_PROVIDER", ProviderHTTP)),
		YahooBaseURL:   getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		YahooRateLimit: getEnvAsInt("YAHOO_RATE_LIMIT", 5),

		APINinjasKey:     getEnv("API_NINJAS_KEY", ""),
		NinjasBaseURL:    getEnv("NINJAS_BASE_URL", "https://api.api-ninjas.com/v1"),
		MassiveAPIKey:    getEnv("MASSIVE_API_KEY", ""),
		MassiveBaseURL:   getEnv("MASSIVE_BASE_URL", "https://api.massive.com/v3"),
		MassivePageDelay: getEnvAsDuration("MASSIVE_PAGE_DELAY", 30*time.Second),

		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		ReferenceTTL:   getEnvAsDuration("REFERENCE_TTL", 24*time.Hour),
		PriceTTL:       getEnvAsDuration("PRICE_TTL", 20*time.Minute),
		HistoryTTL:     getEnvAsDuration("HISTORY_TTL", 20*time.Minute),

		PortfolioMaxConcurrency: getEnvAsInt("PORTFOLIO_MAX_CONCURRENCY", 8),
		PortfolioAlignment:      strings.ToLower(getEnv("PORTFOLIO_ALIGNMENT", "index")),
		MarketTimezone:          getEnv("MARKET_TIMEZONE", "America/New_York"),

		RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "0 0 5 * * *"),
		RefreshExchanges: getEnvAsList("REFRESH_EXCHANGES", []string{"nyse"}),
		RefreshTimeout:   getEnvAsDuration("REFRESH_TIMEOUT", time.Hour),

		BackupBucket:        getEnv("BACKUP_BUCKET", ""),
		BackupEndpoint:      getEnv("BACKUP_ENDPOINT", ""),
		BackupRegion:        getEnv("BACKUP_REGION", "auto"),
		BackupAccessKey:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		BackupSecretKey:     getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		BackupSchedule:      getEnv("BACKUP_SCHEDULE", "0 30 3 * * *"),
		BackupRetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HoldingsDBPath returns the holdings database file path
func (c *Config) HoldingsDBPath() string {
	return filepath.Join(c.DataDir, "holdings.db")
}

// BackupEnabled reports whether off-site backups are configured
func (c *Config) BackupEnabled() bool {
	return c.BackupBucket != ""
}

// Location loads the market time zone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.MarketTimezone)
}

// Validate checks values that cannot be defaulted silently
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.PriceProvider != ProviderHTTP && c.PriceProvider != ProviderNative {
		return fmt.Errorf("invalid PRICE_PROVIDER %q (want %s or %s)", c.PriceProvider, ProviderHTTP, ProviderNative)
	}
	if c.PortfolioAlignment != "index" && c.PortfolioAlignment != "calendar" {
		return fmt.Errorf("invalid PORTFOLIO_ALIGNMENT %q (want index or calendar)", c.PortfolioAlignment)
	}
	if c.PortfolioMaxConcurrency <= 0 {
		return fmt.Errorf("PORTFOLIO_MAX_CONCURRENCY must be positive, got %d", c.PortfolioMaxConcurrency)
	}
	for name, d := range map[string]time.Duration{
		"REQUEST_TIMEOUT": c.RequestTimeout,
		"REFERENCE_TTL":   c.ReferenceTTL,
		"PRICE_TTL":       c.PriceTTL,
		"HISTORY_TTL":     c.HistoryTTL,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid MARKET_TIMEZONE %q: %w", c.MarketTimezone, err)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.RefreshSchedule); err != nil {
		return fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", c.RefreshSchedule, err)
	}
	if c.BackupEnabled() {
		if _, err := parser.Parse(c.BackupSchedule); err != nil {
			return fmt.Errorf("invalid BACKUP_SCHEDULE %q: %w", c.BackupSchedule, err)
		}
	}

	// API keys are optional: without them the reference endpoints fail and serve nothing
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	values := utils.ParseCSV(os.Getenv(key))
	if len(values) == 0 {
		return defaultValue
	}
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}
