package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seenimoa/fxwatch/internal/datasource"
	"github.com/seenimoa/fxwatch/pkg/models"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	reloads        *prometheus.CounterVec
	datasetRecords prometheus.Gauge
	datasetLoaded  prometheus.Gauge
	activeAlerts   *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxwatch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fxwatch_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fxwatch_dataset_reloads_total",
				Help: "Dataset reload attempts by result",
			},
			[]string{"result"},
		),
		datasetRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fxwatch_dataset_records",
				Help: "Number of historical records in the loaded dataset",
			},
		),
		datasetLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fxwatch_dataset_loaded_timestamp_seconds",
				Help: "Unix time the current dataset was loaded",
			},
		),
		activeAlerts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fxwatch_active_alerts",
				Help: "Currencies currently beyond a deviation threshold, by level",
			},
			[]string{"level"},
		),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.reloads,
		m.datasetRecords,
		m.datasetLoaded,
		m.activeAlerts,
	)
	return m
}

// observeSnapshot records dataset size and current alert counts.
func (m *Metrics) observeSnapshot(snap *datasource.Snapshot, alerts []models.Alert) {
	m.datasetRecords.Set(float64(snap.Dataset.Len()))
	m.datasetLoaded.Set(float64(snap.LoadedAt.Unix()))

	counts := map[models.DeviationLevel]int{models.LevelWarning: 0, models.LevelAlert: 0}
	for _, a := range alerts {
		counts[a.Level]++
	}
	for level, n := range counts {
		m.activeAlerts.WithLabelValues(string(level)).Set(float64(n))
	}
}

// instrument counts requests and times them by chi route pattern.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
