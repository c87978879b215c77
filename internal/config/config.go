// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures every recognized key from the configuration surface.
type Config struct {
	BaseURL       string              `mapstructure:"base_url"`
	UserAgent     string              `mapstructure:"user_agent"`
	RateLimitMs   int                 `mapstructure:"rate_limit_ms"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Validation    ValidationConfig    `mapstructure:"validation"`
	Scheduled     ScheduledConfig     `mapstructure:"scheduled"`
	Bulk          BulkConfig          `mapstructure:"bulk"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
}

// StorageConfig controls the document store backends.
type StorageConfig struct {
	BasePath string `mapstructure:"base_path"`
	Type     string `mapstructure:"type"` // archive | search | dual
	Index    string `mapstructure:"index_path"`
}

// ValidationConfig controls the C4 validation pipeline.
type ValidationConfig struct {
	SchemaEnabled     bool `mapstructure:"schema_enabled"`
	LegalDocMLEnabled bool `mapstructure:"legal_docml_enabled"`
	ECLIEnabled       bool `mapstructure:"ecli_enabled"`
	StrictMode        bool `mapstructure:"strict_mode"`
	Async             bool `mapstructure:"async"`
	TimeoutSeconds    int  `mapstructure:"timeout_seconds"`
	MaxSizeMiB        int  `mapstructure:"max_size_mib"`
}

// ScheduledConfig controls the C12 cron triggers.
type ScheduledConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DaysBack   int    `mapstructure:"days_back"`
	DailyCron  string `mapstructure:"daily_cron"`
	WeeklyCron string `mapstructure:"weekly_cron"`
	RetryCron  string `mapstructure:"retry_cron"`
	HealthCron string `mapstructure:"health_cron"`
}

// BulkConfig controls the C11 bulk coordinator.
type BulkConfig struct {
	MaxConcurrentOperations     int `mapstructure:"max_concurrent_operations"`
	MaxConcurrentChecks         int `mapstructure:"max_concurrent_checks"`
	DefaultRateLimitMs          int `mapstructure:"default_rate_limit_ms"`
	DefaultMaxConcurrentDownloads int `mapstructure:"default_max_concurrent_downloads"`
	DiscoveryTimeoutHours       int `mapstructure:"discovery_timeout_hours"`
	StuckOperationTimeoutHours  int `mapstructure:"stuck_operation_timeout_hours"`
	ProgressUpdateIntervalMs    int `mapstructure:"progress_update_interval_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// PostgresConfig configures the campaign-progress persistence store.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load builds a Config from an optional file path plus environment
// variables and defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEGALCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/law-crawler/")
	v.AddConfigPath("$HOME/.law-crawler")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "https://eclicrawler.example.org")
	v.SetDefault("user_agent", "law-crawler-service/1.0 (+contact@example.org)")
	v.SetDefault("rate_limit_ms", 500)

	v.SetDefault("storage.base_path", "./legal-documents")
	v.SetDefault("storage.type", "dual")
	v.SetDefault("storage.index_path", "./legal-documents/.index")

	v.SetDefault("validation.schema_enabled", true)
	v.SetDefault("validation.legal_docml_enabled", true)
	v.SetDefault("validation.ecli_enabled", true)
	v.SetDefault("validation.strict_mode", false)
	v.SetDefault("validation.async", false)
	v.SetDefault("validation.timeout_seconds", 30)
	v.SetDefault("validation.max_size_mib", 10)

	v.SetDefault("scheduled.enabled", true)
	v.SetDefault("scheduled.days_back", 7)
	v.SetDefault("scheduled.daily_cron", "0 6 * * *")
	v.SetDefault("scheduled.weekly_cron", "0 2 * * SUN")
	v.SetDefault("scheduled.retry_cron", "0 */6 * * *")
	v.SetDefault("scheduled.health_cron", "0 * * * *")

	v.SetDefault("bulk.max_concurrent_operations", 3)
	v.SetDefault("bulk.max_concurrent_checks", 8)
	v.SetDefault("bulk.default_rate_limit_ms", 500)
	v.SetDefault("bulk.default_max_concurrent_downloads", 1)
	v.SetDefault("bulk.discovery_timeout_hours", 2)
	v.SetDefault("bulk.stuck_operation_timeout_hours", 6)
	v.SetDefault("bulk.progress_update_interval_ms", 5000)

	v.SetDefault("logging.development", false)

	v.SetDefault("postgres.dsn", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.RateLimitMs < 0 {
		return fmt.Errorf("rate_limit_ms must be >= 0")
	}
	switch c.Storage.Type {
	case "archive", "search", "dual":
	default:
		return fmt.Errorf("storage.type must be one of archive|search|dual, got %q", c.Storage.Type)
	}
	if c.Bulk.MaxConcurrentOperations <= 0 {
		return fmt.Errorf("bulk.max_concurrent_operations must be > 0")
	}
	if c.Bulk.MaxConcurrentChecks <= 0 {
		return fmt.Errorf("bulk.max_concurrent_checks must be > 0")
	}
	if c.Validation.MaxSizeMiB <= 0 {
		return fmt.Errorf("validation.max_size_mib must be > 0")
	}
	return nil
}
