// Package api: configuration endpoints.
package api

import (
	"net/http"

	"github.com/seenimoa/fxwatch/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config          *config.Config   `json:"config"`
	ExchangeRateKey config.KeyStatus `json:"exchangerate_api_key"`
}

// handleGetConfig returns the running configuration. The API key is
// excluded via its json:"-" tag and reported redacted.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:          s.cfg,
			ExchangeRateKey: config.ExchangeRateKey(s.cfg),
		},
	})
}

// handleGetExchangeRateKey reports which ExchangeRate-API plan the
// configured key selects.
func (s *Server) handleGetExchangeRateKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.ExchangeRateKey(s.cfg),
	})
}
