// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camuig/paper-desk/internal/domain"
	"github.com/camuig/paper-desk/internal/ledger"
	"github.com/camuig/paper-desk/internal/signal"
)

const namespace = "paper_desk"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	// Signal metrics
	SignalsTotal    *prometheus.CounterVec
	DegradedSignals prometheus.Counter
	Confidence      prometheus.Histogram

	// Ledger metrics
	PositionEvents *prometheus.CounterVec

	// Scheduler metrics
	ScanDuration prometheus.Histogram
	ScanErrors   *prometheus.CounterVec
	LastScan     prometheus.Gauge

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

var (
	_ signal.Observer = (*Metrics)(nil)
	_ ledger.Observer = (*Metrics)(nil)
)

// NewMetrics registers every metric on a private registry so tests and
// multiple servers in one process do not collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		SignalsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "generated_total",
			Help:      "Signals generated by kind",
		}, []string{"kind"}),
		DegradedSignals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "degraded_total",
			Help:      "Signals produced without a working model",
		}),
		Confidence: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signal",
			Name:      "confidence",
			Help:      "Distribution of signal confidence",
			Buckets:   []float64{0.5, 0.55, 0.6, 0.65, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1},
		}),

		PositionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "position_events_total",
			Help:      "Position lifecycle events by kind and asset class",
		}, []string{"event", "asset_class"}),

		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "scan_duration_seconds",
			Help:      "Watchlist scan duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		ScanErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "scan_errors_total",
			Help:      "Per-symbol scan failures by stage",
		}, []string{"stage"}),
		LastScan: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "last_scan_timestamp",
			Help:      "Unix timestamp of the last completed scan",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveSignal(sig domain.Signal) {
	m.SignalsTotal.WithLabelValues(string(sig.Kind)).Inc()
	m.Confidence.Observe(sig.Confidence)
	if sig.IsDegraded() {
		m.DegradedSignals.Inc()
	}
}

func (m *Metrics) ObservePosition(kind ledger.EventKind, p domain.Position) {
	m.PositionEvents.WithLabelValues(string(kind), string(p.AssetClass)).Inc()
}

// RecordScan records a completed watchlist scan.
func (m *Metrics) RecordScan(d time.Duration, finished time.Time) {
	m.ScanDuration.Observe(d.Seconds())
	m.LastScan.Set(float64(finished.Unix()))
}

func (m *Metrics) RecordScanError(stage string) {
	m.ScanErrors.WithLabelValues(stage).Inc()
}

// RecordHTTP records one served request. route is the mux pattern, not the
// raw path, to keep label cardinality bounded.
func (m *Metrics) RecordHTTP(route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(d.Seconds())
}
