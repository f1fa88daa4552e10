package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	t.Setenv("FXWATCH_FETCH_EXCHANGERATE_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Dataset defaults
	if cfg.Dataset.Path != "data/historical.json" {
		t.Errorf("Dataset.Path: got %q", cfg.Dataset.Path)
	}
	if cfg.DatasetLocation() != "data/historical.json" {
		t.Errorf("DatasetLocation: got %q", cfg.DatasetLocation())
	}

	// Dashboard defaults
	if cfg.Dashboard.Base != "SGD" || cfg.Dashboard.Target != "CNY" {
		t.Errorf("Dashboard pair: got %s/%s, want SGD/CNY", cfg.Dashboard.Base, cfg.Dashboard.Target)
	}
	if cfg.Dashboard.Window != 365 {
		t.Errorf("Dashboard.Window: got %d, want 365", cfg.Dashboard.Window)
	}

	// Alert defaults
	if cfg.Alerts.AlertSigma != 2.0 {
		t.Errorf("Alerts.AlertSigma: got %f, want 2.0", cfg.Alerts.AlertSigma)
	}
	if cfg.Alerts.WarningSigma != 1.5 {
		t.Errorf("Alerts.WarningSigma: got %f, want 1.5", cfg.Alerts.WarningSigma)
	}
	if cfg.Alerts.Days != 365 {
		t.Errorf("Alerts.Days: got %d, want 365", cfg.Alerts.Days)
	}

	// Fetch defaults
	if !strings.Contains(cfg.Fetch.CurrencyAPIURL, "%s") {
		t.Errorf("Fetch.CurrencyAPIURL has no date placeholder: %q", cfg.Fetch.CurrencyAPIURL)
	}
	if cfg.Fetch.LatestSource != "exchangerate-api" {
		t.Errorf("Fetch.LatestSource: got %q", cfg.Fetch.LatestSource)
	}
	if cfg.Fetch.HistoryDays != 730 {
		t.Errorf("Fetch.HistoryDays: got %d, want 730", cfg.Fetch.HistoryDays)
	}
	if cfg.Fetch.Concurrency != 4 {
		t.Errorf("Fetch.Concurrency: got %d, want 4", cfg.Fetch.Concurrency)
	}

	// Refresh is disabled by default
	if cfg.Refresh.Schedule != "" {
		t.Errorf("Refresh.Schedule: got %q, want empty", cfg.Refresh.Schedule)
	}

	// API defaults
	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port: got %d, want 8080", cfg.API.Port)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Logging.Output: got %q, want %q", cfg.Logging.Output, "stdout")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FXWATCH_DASHBOARD_BASE", "JPY")
	t.Setenv("FXWATCH_API_PORT", "9191")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Dashboard.Base != "JPY" {
		t.Errorf("Dashboard.Base: got %q, want JPY", cfg.Dashboard.Base)
	}
	if cfg.API.Port != 9191 {
		t.Errorf("API.Port: got %d, want 9191", cfg.API.Port)
	}
}

// ── LoadFromFile ──

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("FXWATCH_FETCH_EXCHANGERATE_API_KEY", "")

	cfgPath := writeConfig(t, `
dataset:
  url: "https://example.com/historical.json"
dashboard:
  base: "usd"
  target: "jpy"
  window: 90
alerts:
  alert_sigma: 3.0
  warning_sigma: 2.0
  days: 180
fetch:
  exchangerate_api_key: "test_key_12345678901234"
  latest_source: "currency-api"
refresh:
  schedule: "0 */30 * * * *"
api:
  port: 9090
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.DatasetLocation() != "https://example.com/historical.json" {
		t.Errorf("DatasetLocation: got %q", cfg.DatasetLocation())
	}
	pair := cfg.DefaultPair()
	if pair.Name() != "USD/JPY" {
		t.Errorf("DefaultPair: got %q, want USD/JPY", pair.Name())
	}
	if cfg.Dashboard.Window != 90 {
		t.Errorf("Dashboard.Window: got %d, want 90", cfg.Dashboard.Window)
	}
	if cfg.Alerts.AlertSigma != 3.0 || cfg.Alerts.WarningSigma != 2.0 {
		t.Errorf("Alerts sigmas: got %f/%f", cfg.Alerts.AlertSigma, cfg.Alerts.WarningSigma)
	}
	if cfg.Alerts.Days != 180 {
		t.Errorf("Alerts.Days: got %d, want 180", cfg.Alerts.Days)
	}
	if cfg.Fetch.ExchangeRateAPIKey != "test_key_12345678901234" {
		t.Errorf("Fetch.ExchangeRateAPIKey: got %q", cfg.Fetch.ExchangeRateAPIKey)
	}
	if cfg.Fetch.LatestSource != "currency-api" {
		t.Errorf("Fetch.LatestSource: got %q", cfg.Fetch.LatestSource)
	}
	if cfg.Refresh.Schedule != "0 */30 * * * *" {
		t.Errorf("Refresh.Schedule: got %q", cfg.Refresh.Schedule)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port: got %d, want 9090", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"same currency", "dashboard:\n  base: CNY\n  target: CNY\n", "dashboard"},
		{"unknown currency", "dashboard:\n  base: EUR\n", "dashboard"},
		{"zero window", "dashboard:\n  window: 0\n", "dashboard.window"},
		{"inverted sigmas", "alerts:\n  alert_sigma: 1.0\n  warning_sigma: 1.5\n", "alerts"},
		{"bad latest source", "fetch:\n  latest_source: yahoo\n", "latest_source"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("FXWATCH_FETCH_EXCHANGERATE_API_KEY", "env-key-123456")

	cfg := &Config{}
	overrideFromEnv(cfg)

	if cfg.Fetch.ExchangeRateAPIKey != "env-key-123456" {
		t.Errorf("ExchangeRateAPIKey: got %q", cfg.Fetch.ExchangeRateAPIKey)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	t.Setenv("FXWATCH_FETCH_EXCHANGERATE_API_KEY", "")

	cfg := &Config{Fetch: FetchConfig{ExchangeRateAPIKey: "from-config"}}
	overrideFromEnv(cfg)

	// Should retain the original value when env is not set
	if cfg.Fetch.ExchangeRateAPIKey != "from-config" {
		t.Errorf("ExchangeRateAPIKey should stay as 'from-config' when env is unset, got %q", cfg.Fetch.ExchangeRateAPIKey)
	}
}

// ── ExchangeRateKey ──

func TestRedactKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "****"},
		{"abcd", "****"},
		{"12345678", "****"},
		{"123456789", "****6789"},
		{"a1b2c3d4e5f6a7b8c9d0e1f2", "****e1f2"},
	}
	for _, tc := range tests {
		got := redactKey(tc.input)
		if got != tc.want {
			t.Errorf("redactKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestExchangeRateKeyOpenPlan(t *testing.T) {
	t.Setenv(exchangeRateKeyEnv, "")

	cfg := &Config{Fetch: FetchConfig{ExchangeRateAPIURL: "https://open.exchangerate-api.com/v6/latest"}}
	s := ExchangeRateKey(cfg)
	if s.Plan != PlanOpen || s.Origin != OriginNone {
		t.Errorf("unset key reported as %+v", s)
	}
	if s.Endpoint != "open.exchangerate-api.com" {
		t.Errorf("Endpoint: got %q", s.Endpoint)
	}
	if s.Key != "" {
		t.Errorf("Key: got %q, want empty", s.Key)
	}
}

func TestExchangeRateKeyKeyedPlan(t *testing.T) {
	t.Setenv(exchangeRateKeyEnv, "")

	cfg := &Config{Fetch: FetchConfig{
		ExchangeRateAPIURL: "https://open.exchangerate-api.com/v6/latest",
		ExchangeRateAPIKey: "a1b2c3d4e5f6a7b8c9d0e1f2",
	}}
	s := ExchangeRateKey(cfg)
	if s.Plan != PlanKeyed {
		t.Errorf("Plan: got %q, want %q", s.Plan, PlanKeyed)
	}
	if s.Origin != OriginFile {
		t.Errorf("Origin: got %q, want %q", s.Origin, OriginFile)
	}
	if s.Endpoint != "v6.exchangerate-api.com" {
		t.Errorf("Endpoint: got %q", s.Endpoint)
	}
	if s.Key != "****e1f2" {
		t.Errorf("Key: got %q", s.Key)
	}
}

func TestExchangeRateKeyFromEnv(t *testing.T) {
	t.Setenv(exchangeRateKeyEnv, "env-key-0123456789")

	cfg := &Config{}
	overrideFromEnv(cfg)
	s := ExchangeRateKey(cfg)
	if s.Origin != OriginEnv {
		t.Errorf("Origin: got %q, want %q", s.Origin, OriginEnv)
	}
}
