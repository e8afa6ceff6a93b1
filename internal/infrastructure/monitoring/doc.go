// Package monitoring provides Prometheus metrics for the backend:
// HTTP request counters and latencies, window registry gauges, autosave
// destination outcomes, and codec import/export counters. Metrics are
// exposed on /metrics via the standard promhttp handler.
package monitoring
