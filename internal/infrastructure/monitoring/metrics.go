package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Window registry metrics
	WindowsTotal   prometheus.Gauge
	WindowsOpen    prometheus.Gauge
	WindowsCreated prometheus.Counter

	// Autosave metrics
	SavesTotal    *prometheus.CounterVec // destination, status
	SaveDuration  *prometheus.HistogramVec
	EventsDropped prometheus.Counter

	// Codec metrics
	ImportsTotal     prometheus.Counter
	ImportCellErrors prometheus.Counter
	ExportsTotal     prometheus.Counter

	// Workspace store metrics
	Workspaces prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates a metrics collector registered on the default
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holodesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holodesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		WindowsTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "holodesk_windows_total",
				Help: "Number of window records in the registry",
			},
		),
		WindowsOpen: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "holodesk_windows_open",
				Help: "Number of currently open windows",
			},
		),
		WindowsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "holodesk_windows_created_total",
				Help: "Total number of windows ever created",
			},
		),

		SavesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holodesk_saves_total",
				Help: "Autosave destination writes by outcome",
			},
			[]string{"destination", "status"},
		),
		SaveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holodesk_save_duration_seconds",
				Help:    "Destination write duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 10},
			},
			[]string{"destination"},
		),
		EventsDropped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "holodesk_autosave_events_dropped_total",
				Help: "Events filtered out by the autosave policy",
			},
		),

		ImportsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "holodesk_imports_total",
				Help: "Total notebook imports",
			},
		),
		ImportCellErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "holodesk_import_cell_errors_total",
				Help: "Per-cell errors encountered during imports",
			},
		),
		ExportsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "holodesk_exports_total",
				Help: "Total notebook exports",
			},
		),

		Workspaces: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "holodesk_workspaces",
				Help: "Number of workspaces in the metadata index",
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "holodesk_ws_connections",
				Help: "Active WebSocket stream connections",
			},
		),
	}
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSave records one destination write outcome.
func (m *Metrics) RecordSave(destination string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.SavesTotal.WithLabelValues(destination, status).Inc()
	m.SaveDuration.WithLabelValues(destination).Observe(duration.Seconds())
}

// SetWindowCounts updates the registry gauges.
func (m *Metrics) SetWindowCounts(total, open int) {
	m.WindowsTotal.Set(float64(total))
	m.WindowsOpen.Set(float64(open))
}

// RecordImport records an import and its per-cell error count.
func (m *Metrics) RecordImport(cellErrors int) {
	m.ImportsTotal.Inc()
	m.ImportCellErrors.Add(float64(cellErrors))
}

// Uptime returns time since the collector was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
