// Package api provides the HTTP REST API server for fxwatch.
//
// It exposes pair statistics, chart series, summary cards and deviation
// alerts computed from the loaded dataset, plus reload, metrics and a
// WebSocket event stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/seenimoa/fxwatch/internal/alerts"
	"github.com/seenimoa/fxwatch/internal/analysis/pairstats"
	"github.com/seenimoa/fxwatch/internal/config"
	"github.com/seenimoa/fxwatch/internal/datasource"
	"github.com/seenimoa/fxwatch/internal/scheduler"
	"github.com/seenimoa/fxwatch/pkg/models"
	"github.com/seenimoa/fxwatch/pkg/utils"
)

// Version is reported by the health endpoint. Set by the CLI at startup.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	cfg        *config.Config
	holder     *datasource.Holder
	refresher  *scheduler.Refresher
	checker    *alerts.Checker
	thresholds pairstats.Thresholds
	logger     *logrus.Logger
	registry   *prometheus.Registry
	metrics    *Metrics
	wsHub      *WSHub
	now        func() time.Time
}

// NewServer creates a configured API server with all routes and middleware.
// The holder may be empty; data endpoints answer 503 until a load succeeds.
func NewServer(cfg *config.Config, holder *datasource.Holder, logger *logrus.Logger) *Server {
	th := pairstats.Thresholds{Alert: cfg.Alerts.AlertSigma, Warning: cfg.Alerts.WarningSigma}

	reg := prometheus.NewRegistry()
	srv := &Server{
		cfg:        cfg,
		holder:     holder,
		thresholds: th,
		checker:    alerts.NewChecker(alerts.Config{Thresholds: th, Days: cfg.Alerts.Days}),
		logger:     logger,
		registry:   reg,
		metrics:    NewMetrics(reg),
		wsHub:      NewWSHub(),
		now:        time.Now,
	}

	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "fxwatch_websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
		func() float64 { return float64(srv.wsHub.ClientCount()) },
	))

	if snap, err := holder.Snapshot(); err == nil {
		srv.metrics.observeSnapshot(snap, srv.checker.Check(snap.Dataset))
	}

	srv.router = srv.buildRouter()
	return srv
}

// SetRefresher attaches the reload scheduler. Every reload it performs is
// broadcast to WebSocket clients and recorded in metrics.
// Must be called before ListenAndServe.
func (s *Server) SetRefresher(r *scheduler.Refresher) {
	s.refresher = r
	r.OnReload(s.onReload)
	r.OnFailure(func(error) { s.metrics.reloads.WithLabelValues("failure").Inc() })
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown on SIGINT
// or SIGTERM.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()
	defer s.wsHub.Stop()

	if s.refresher != nil {
		s.refresher.Start()
		defer s.refresher.Stop()
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(done)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-done:
	}
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(s.metrics.instrument)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// Prometheus
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/currencies", s.handleCurrencies)
		r.Get("/metadata", s.handleMetadata)

		// Pair statistics
		r.Get("/stats", s.handleStats)
		r.Get("/series", s.handleSeries)
		r.Get("/cards", s.handleCards)

		r.Get("/alerts", s.handleAlerts)

		r.Post("/reload", s.handleReload)

		// Configuration (read-only)
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetExchangeRateKey)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatsResponse is returned by GET /api/v1/stats.
type StatsResponse struct {
	Pair   string             `json:"pair"`
	Base   models.Currency    `json:"base"`
	Target models.Currency    `json:"target"`
	Window int                `json:"window"`
	Stats  models.StatsResult `json:"stats"`
}

// CardsResponse is returned by GET /api/v1/cards.
type CardsResponse struct {
	Base   models.Currency   `json:"base"`
	Window int               `json:"window"`
	Cards  []models.PairCard `json:"cards"`
}

// AlertsResponse is returned by GET /api/v1/alerts.
type AlertsResponse struct {
	Alerts    []models.Alert `json:"alerts"`
	Message   string         `json:"message,omitempty"`
	Days      int            `json:"days"`
	CheckedAt time.Time      `json:"checked_at"`
}

// MetadataResponse is returned by GET /api/v1/metadata.
type MetadataResponse struct {
	Metadata    models.DatasetMetadata   `json:"metadata"`
	Records     int                      `json:"records"`
	Current     *models.HistoricalRecord `json:"current,omitempty"`
	LoadedAt    time.Time                `json:"loaded_at"`
	Source      string                   `json:"source"`
	LastUpdated string                   `json:"last_updated_display,omitempty"`
	LoadError   string                   `json:"load_error,omitempty"`
	Refresh     *scheduler.Status        `json:"refresh,omitempty"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, err := s.holder.Snapshot()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":         "ok",
			"version":        Version,
			"dataset_loaded": err == nil,
			"time":           utils.FormatTimestamp(s.now()),
		},
	})
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: models.CurrencyList()})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	resp := MetadataResponse{
		Metadata: snap.Dataset.Metadata,
		Records:  snap.Dataset.Len(),
		Current:  snap.Dataset.Current,
		LoadedAt: snap.LoadedAt,
		Source:   snap.Source,
	}
	if ts, err := utils.ParseTimestamp(snap.Dataset.Metadata.LastUpdated); err == nil {
		resp.LastUpdated = utils.FormatDisplayTime(ts)
	}
	if err := s.holder.LastError(); err != nil {
		resp.LoadError = err.Error()
	}
	if s.refresher != nil {
		st := s.refresher.Status()
		resp.Refresh = &st
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	pair, window, err := s.pairParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: StatsResponse{
			Pair:   pair.Name(),
			Base:   pair.Base,
			Target: pair.Target,
			Window: window,
			Stats:  pairstats.ComputeStats(snap.Dataset, pair.Base, pair.Target, window),
		},
	})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	pair, window, err := s.pairParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    pairstats.PrepareSeries(snap.Dataset, pair.Base, pair.Target, window),
	})
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	base, err := s.currencyParam(r, "base", s.cfg.Dashboard.Base)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	window, err := s.windowParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: CardsResponse{
			Base:   base,
			Window: window,
			Cards:  pairstats.Cards(snap.Dataset, base, window, s.thresholds),
		},
	})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.alertsFor(snap)})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	var (
		snap *datasource.Snapshot
		err  error
	)
	if s.refresher != nil {
		snap, err = s.refresher.RunNow(r.Context())
	} else {
		snap, err = s.holder.Reload(r.Context())
		if err == nil {
			s.onReload(snap)
		} else {
			s.metrics.reloads.WithLabelValues("failure").Inc()
		}
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, "reload failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"records":   snap.Dataset.Len(),
			"loaded_at": snap.LoadedAt,
			"source":    snap.Source,
		},
	})
}

// ============================================================
// Helpers
// ============================================================

// onReload publishes a fresh snapshot to metrics and WebSocket clients.
func (s *Server) onReload(snap *datasource.Snapshot) {
	resp := s.alertsFor(snap)
	s.metrics.reloads.WithLabelValues("success").Inc()
	s.metrics.observeSnapshot(snap, resp.Alerts)

	s.wsHub.Broadcast(WSMessage{
		Type: EventDatasetReloaded,
		Data: map[string]interface{}{
			"records":      snap.Dataset.Len(),
			"loaded_at":    snap.LoadedAt,
			"last_updated": snap.Dataset.Metadata.LastUpdated,
		},
	})
	if len(resp.Alerts) > 0 {
		s.wsHub.Broadcast(WSMessage{Type: EventAlerts, Data: resp})
	}
}

func (s *Server) alertsFor(snap *datasource.Snapshot) AlertsResponse {
	now := s.now()
	found := s.checker.Check(snap.Dataset)
	if found == nil {
		found = []models.Alert{}
	}
	return AlertsResponse{
		Alerts:    found,
		Message:   alerts.FormatMessage(found, now),
		Days:      s.cfg.Alerts.Days,
		CheckedAt: now,
	}
}

// snapshot writes a 503 and returns false when no dataset is loaded.
func (s *Server) snapshot(w http.ResponseWriter) (*datasource.Snapshot, bool) {
	snap, err := s.holder.Snapshot()
	if err != nil {
		msg := "dataset not loaded"
		if lastErr := s.holder.LastError(); lastErr != nil {
			msg += ": " + lastErr.Error()
		}
		writeError(w, http.StatusServiceUnavailable, msg)
		return nil, false
	}
	return snap, true
}

// pairParams reads base, target and window, defaulting each from config.
func (s *Server) pairParams(r *http.Request) (models.CurrencyPair, int, error) {
	var pair models.CurrencyPair
	base, err := s.currencyParam(r, "base", s.cfg.Dashboard.Base)
	if err != nil {
		return pair, 0, err
	}
	target, err := s.currencyParam(r, "target", s.cfg.Dashboard.Target)
	if err != nil {
		return pair, 0, err
	}
	pair = models.CurrencyPair{Base: base, Target: target}
	if err := pair.Validate(); err != nil {
		return pair, 0, err
	}
	window, err := s.windowParam(r)
	if err != nil {
		return pair, 0, err
	}
	return pair, window, nil
}

func (s *Server) currencyParam(r *http.Request, name, def string) (models.Currency, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		v = def
	}
	c, err := models.ParseCurrency(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

func (s *Server) windowParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("window")
	if v == "" {
		return s.cfg.Dashboard.Window, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("window must be a positive integer, got %q", v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"success":false,"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n')) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
