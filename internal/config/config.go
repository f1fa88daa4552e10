package config

// Package config handles configuration loading for fxwatch.
// It supports YAML config files with environment variable overrides.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/seenimoa/fxwatch/pkg/models"
)

// Config represents the complete application configuration.
type Config struct {
	Dataset   DatasetConfig   `mapstructure:"dataset"   yaml:"dataset"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Alerts    AlertsConfig    `mapstructure:"alerts"    yaml:"alerts"`
	Fetch     FetchConfig     `mapstructure:"fetch"     yaml:"fetch"`
	Refresh   RefreshConfig   `mapstructure:"refresh"   yaml:"refresh"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// DatasetConfig locates the historical dataset.
type DatasetConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // local file, also the write target of fetch/update
	URL  string `mapstructure:"url"  yaml:"url"`  // when set, the dataset is read from here instead of Path
}

// DashboardConfig holds the default pair and window selection.
type DashboardConfig struct {
	Base   string `mapstructure:"base"   yaml:"base"`
	Target string `mapstructure:"target" yaml:"target"`
	Window int    `mapstructure:"window" yaml:"window"` // records
}

// AlertsConfig holds deviation thresholds in standard deviations.
type AlertsConfig struct {
	AlertSigma   float64 `mapstructure:"alert_sigma"   yaml:"alert_sigma"`
	WarningSigma float64 `mapstructure:"warning_sigma" yaml:"warning_sigma"`
	Days         int     `mapstructure:"days"          yaml:"days"`
}

// FetchConfig holds upstream rate API settings.
type FetchConfig struct {
	CurrencyAPIURL     string  `mapstructure:"currency_api_url"     yaml:"currency_api_url"`     // %s = date tag
	ExchangeRateAPIURL string  `mapstructure:"exchangerate_api_url" yaml:"exchangerate_api_url"`
	ExchangeRateAPIKey string  `mapstructure:"exchangerate_api_key" yaml:"exchangerate_api_key" json:"-"`
	LatestSource       string  `mapstructure:"latest_source"        yaml:"latest_source"` // "exchangerate-api" or "currency-api"
	HistoryDays        int     `mapstructure:"history_days"         yaml:"history_days"`
	Concurrency        int     `mapstructure:"concurrency"          yaml:"concurrency"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"  yaml:"requests_per_second"`
	TimeoutSec         int     `mapstructure:"timeout_sec"          yaml:"timeout_sec"`
}

// RefreshConfig schedules dataset reloads while serving.
type RefreshConfig struct {
	Schedule string `mapstructure:"schedule" yaml:"schedule"` // cron spec with seconds; empty disables
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"       yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `mapstructure:"format"      yaml:"format"` // "text" or "json"
	Output     string `mapstructure:"output"      yaml:"output"` // "stdout", "stderr" or "file"
	Filename   string `mapstructure:"filename"    yaml:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress"    yaml:"compress"`
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.fxwatch/config.yaml (home directory)
//  3. /etc/fxwatch/config.yaml (system)
//
// A .env file in the working directory is loaded into the environment
// first. Environment variables override config file values.
// Format: FXWATCH_<SECTION>_<KEY>, e.g., FXWATCH_DASHBOARD_BASE
func Load() (*Config, error) {
	loadDotEnv()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".fxwatch"))
	v.AddConfigPath("/etc/fxwatch")

	bindEnv(v)

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override sensitive values from environment
	overrideFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("FXWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Dataset defaults
	v.SetDefault("dataset.path", "data/historical.json")
	v.SetDefault("dataset.url", "")

	// Dashboard defaults (the dashboard opens on SGD/CNY over a year)
	v.SetDefault("dashboard.base", "SGD")
	v.SetDefault("dashboard.target", "CNY")
	v.SetDefault("dashboard.window", 365)

	// Alert defaults
	v.SetDefault("alerts.alert_sigma", 2.0)
	v.SetDefault("alerts.warning_sigma", 1.5)
	v.SetDefault("alerts.days", 365)

	// Fetch defaults
	v.SetDefault("fetch.currency_api_url", "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@%s/v1/currencies/usd.json")
	v.SetDefault("fetch.exchangerate_api_url", "https://open.exchangerate-api.com/v6/latest")
	v.SetDefault("fetch.latest_source", "exchangerate-api")
	v.SetDefault("fetch.history_days", 730)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.requests_per_second", 10.0)
	v.SetDefault("fetch.timeout_sec", 10)

	// Refresh defaults (disabled)
	v.SetDefault("refresh.schedule", "")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "logs/fxwatch.log")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)
}

// Validate checks values that would otherwise fail later at request time.
func (c *Config) Validate() error {
	pair := c.DefaultPair()
	if err := pair.Validate(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	if c.Dashboard.Window <= 0 {
		return fmt.Errorf("dashboard.window must be positive, got %d", c.Dashboard.Window)
	}
	if c.Alerts.WarningSigma <= 0 || c.Alerts.AlertSigma < c.Alerts.WarningSigma {
		return fmt.Errorf("alerts: need 0 < warning_sigma (%g) <= alert_sigma (%g)", c.Alerts.WarningSigma, c.Alerts.AlertSigma)
	}
	if c.Alerts.Days <= 0 {
		return fmt.Errorf("alerts.days must be positive, got %d", c.Alerts.Days)
	}
	switch c.Fetch.LatestSource {
	case "exchangerate-api", "currency-api":
	default:
		return fmt.Errorf("fetch.latest_source %q is not one of exchangerate-api, currency-api", c.Fetch.LatestSource)
	}
	if c.Dataset.Path == "" && c.Dataset.URL == "" {
		return errors.New("dataset: path or url is required")
	}
	return nil
}

// DefaultPair returns the configured dashboard pair, upper-cased.
func (c *Config) DefaultPair() models.CurrencyPair {
	return models.CurrencyPair{
		Base:   models.Currency(strings.ToUpper(c.Dashboard.Base)),
		Target: models.Currency(strings.ToUpper(c.Dashboard.Target)),
	}
}

// DatasetLocation returns the URL when configured, otherwise the path.
func (c *Config) DatasetLocation() string {
	if c.Dataset.URL != "" {
		return c.Dataset.URL
	}
	return c.Dataset.Path
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv(exchangeRateKeyEnv); key != "" {
		cfg.Fetch.ExchangeRateAPIKey = key
	}
}

// loadDotEnv loads ./.env if present; existing variables win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
