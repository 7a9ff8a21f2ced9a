// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultConfigFile is read from the working directory when present
const DefaultConfigFile = "folio.toml"

// Config holds application configuration
type Config struct {
	DataDir        string `toml:"data_dir"` // Base directory for the database and backup snapshots
	DatabasePath   string `toml:"database_path"`
	DatabaseDriver string `toml:"database_driver"` // "sqlite" (pure Go) or "sqlite3" (cgo)
	LogLevel       string `toml:"log_level"`
	Port           int    `toml:"port"`
	DevMode        bool   `toml:"dev_mode"`

	Quotes    QuotesConfig    `toml:"quotes"`
	Schedules SchedulesConfig `toml:"schedules"`
	Gemini    GeminiConfig    `toml:"gemini"`
	Backup    BackupConfig    `toml:"backup"`
}

// QuotesConfig holds quote source and cache configuration
type QuotesConfig struct {
	BaseURL        string `toml:"base_url"`
	ExchangeSuffix string `toml:"exchange_suffix"` // Appended to symbols without an exchange qualifier
	Timeout        string `toml:"timeout"`         // Per-request timeout, duration string
	RateLimit      int    `toml:"rate_limit"`      // Requests per second, 0 disables limiting
	CacheTTL       string `toml:"cache_ttl"`
	Concurrency    int    `toml:"concurrency"` // Max in-flight fetches per batch, 0 = unbounded
}

// GetTimeout parses and returns the per-request timeout
func (c QuotesConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetCacheTTL parses and returns the quote cache time-to-live
func (c QuotesConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// SchedulesConfig holds cron expressions (with seconds) for background jobs
type SchedulesConfig struct {
	Reconcile   string `toml:"reconcile"`
	Rebalance   string `toml:"rebalance"`
	Backup      string `toml:"backup"`
	Maintenance string `toml:"maintenance"`
}

// GeminiConfig holds the AI insights generator configuration
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// BackupConfig holds S3-compatible backup configuration
type BackupConfig struct {
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Endpoint  string `toml:"endpoint"` // Custom endpoint for S3-compatible stores (R2, MinIO)
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Retention int    `toml:"retention"` // Number of backups to keep
}

// Enabled reports whether off-site backups are configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:        "./data",
		DatabaseDriver: "sqlite",
		LogLevel:       "info",
		Port:           8001,
		Quotes: QuotesConfig{
			BaseURL:        "https://query1.finance.yahoo.com",
			ExchangeSuffix: ".NS",
			Timeout:        "10s",
			RateLimit:      10,
			CacheTTL:       "5m",
			Concurrency:    0,
		},
		Schedules: SchedulesConfig{
			Reconcile:   "0 */5 * * * *", // Every 5 minutes
			Rebalance:   "0 0 9 * * MON", // Monday 09:00
			Backup:      "0 30 2 * * *",  // Daily 02:30
			Maintenance: "0 0 * * * *",   // Hourly
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Backup: BackupConfig{
			Prefix:    "folio-backups/",
			Region:    "auto",
			Retention: 14,
		},
	}
}

// Load reads configuration from defaults, optional TOML files, .env and the environment.
// Later sources override earlier ones. Missing files are skipped.
func Load(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	if len(paths) == 0 {
		paths = []string{DefaultConfigFile}
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	applyEnvOverrides(cfg)

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	cfg.DataDir = absDataDir

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "folio.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.DataDir = getEnv("FOLIO_DATA_DIR", cfg.DataDir)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.DatabaseDriver = getEnv("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Port = getEnvAsInt("GO_PORT", cfg.Port)
	cfg.DevMode = getEnvAsBool("DEV_MODE", cfg.DevMode)

	cfg.Quotes.BaseURL = getEnv("QUOTE_BASE_URL", cfg.Quotes.BaseURL)
	cfg.Quotes.ExchangeSuffix = getEnv("QUOTE_EXCHANGE_SUFFIX", cfg.Quotes.ExchangeSuffix)
	cfg.Quotes.Timeout = getEnv("QUOTE_TIMEOUT", cfg.Quotes.Timeout)
	cfg.Quotes.RateLimit = getEnvAsInt("QUOTE_RATE_LIMIT", cfg.Quotes.RateLimit)
	cfg.Quotes.CacheTTL = getEnv("QUOTE_CACHE_TTL", cfg.Quotes.CacheTTL)
	cfg.Quotes.Concurrency = getEnvAsInt("QUOTE_FETCH_CONCURRENCY", cfg.Quotes.Concurrency)

	cfg.Schedules.Reconcile = getEnv("RECONCILE_SCHEDULE", cfg.Schedules.Reconcile)
	cfg.Schedules.Rebalance = getEnv("REBALANCE_SCHEDULE", cfg.Schedules.Rebalance)
	cfg.Schedules.Backup = getEnv("BACKUP_SCHEDULE", cfg.Schedules.Backup)
	cfg.Schedules.Maintenance = getEnv("MAINTENANCE_SCHEDULE", cfg.Schedules.Maintenance)

	// GOOGLE_API_KEY is what the genai SDK itself falls back to
	cfg.Gemini.APIKey = getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", cfg.Gemini.APIKey))
	cfg.Gemini.Model = getEnv("GEMINI_MODEL", cfg.Gemini.Model)

	cfg.Backup.Bucket = getEnv("BACKUP_S3_BUCKET", cfg.Backup.Bucket)
	cfg.Backup.Prefix = getEnv("BACKUP_S3_PREFIX", cfg.Backup.Prefix)
	cfg.Backup.Endpoint = getEnv("BACKUP_S3_ENDPOINT", cfg.Backup.Endpoint)
	cfg.Backup.Region = getEnv("BACKUP_S3_REGION", cfg.Backup.Region)
	cfg.Backup.AccessKey = getEnv("BACKUP_S3_ACCESS_KEY", cfg.Backup.AccessKey)
	cfg.Backup.SecretKey = getEnv("BACKUP_S3_SECRET_KEY", cfg.Backup.SecretKey)
	cfg.Backup.Retention = getEnvAsInt("BACKUP_RETENTION", cfg.Backup.Retention)
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	switch c.DatabaseDriver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q (want sqlite or sqlite3)", c.DatabaseDriver)
	}

	if err := validatePositiveDuration("QUOTE_CACHE_TTL", c.Quotes.CacheTTL); err != nil {
		return err
	}
	if err := validatePositiveDuration("QUOTE_TIMEOUT", c.Quotes.Timeout); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT out of range: %d", c.Port)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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

func validatePositiveDuration(key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s is not a valid duration: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", key, value)
	}
	return nil
}
