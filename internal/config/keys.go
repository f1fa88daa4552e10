package config

import (
	"net/url"
	"os"
	"strings"
)

// exchangeRateKeyEnv overrides fetch.exchangerate_api_key.
const exchangeRateKeyEnv = "FXWATCH_FETCH_EXCHANGERATE_API_KEY"

// keyedExchangeRateHost serves the per-key ExchangeRate-API plan.
const keyedExchangeRateHost = "v6.exchangerate-api.com"

// KeyOrigin tells where the ExchangeRate-API key was read from.
type KeyOrigin string

const (
	OriginEnv  KeyOrigin = "env"
	OriginFile KeyOrigin = "file"
	OriginNone KeyOrigin = "none"
)

// ExchangeRate-API plans. Without a key the open endpoint is used.
const (
	PlanOpen  = "open"
	PlanKeyed = "keyed"
)

// KeyStatus describes the ExchangeRate-API credential and which endpoint
// the latest-rate source calls with it.
type KeyStatus struct {
	Origin   KeyOrigin `json:"origin"`
	Plan     string    `json:"plan"`
	Endpoint string    `json:"endpoint"`      // host only; keyed paths embed the key
	Key      string    `json:"key,omitempty"` // redacted
}

// ExchangeRateKey reports the configured ExchangeRate-API key.
func ExchangeRateKey(cfg *Config) KeyStatus {
	key := cfg.Fetch.ExchangeRateAPIKey
	if key == "" {
		return KeyStatus{
			Origin:   OriginNone,
			Plan:     PlanOpen,
			Endpoint: hostOf(cfg.Fetch.ExchangeRateAPIURL),
		}
	}

	origin := OriginFile
	if os.Getenv(exchangeRateKeyEnv) == key {
		origin = OriginEnv
	}
	return KeyStatus{
		Origin:   origin,
		Plan:     PlanKeyed,
		Endpoint: keyedExchangeRateHost,
		Key:      redactKey(key),
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

// redactKey keeps the last four characters of keys long enough to spare them.
func redactKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return strings.Repeat("*", 4) + key[len(key)-4:]
}
