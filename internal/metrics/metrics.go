package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Capture loop counters
	FramesCaptured  atomic.Uint64
	CaptureErrors   atomic.Uint64
	ConnectAttempts atomic.Uint64
	ConnectErrors   atomic.Uint64
	Reconnects      atomic.Uint64

	// Consumer-facing counters
	SnapshotsServed  atomic.Uint64
	StreamFramesSent atomic.Uint64
	EncodeErrors     atomic.Uint64

	// Demand tracking
	ActiveSubscribers  atomic.Int64
	CaptureRunning     atomic.Uint64 // 0 = dormant, 1 = running
	ActiveStreams      atomic.Int64
	StreamClientsTotal atomic.Uint64

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	// Capture loop metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_frames_captured_total",
			Help: "Total frames captured from the upstream source",
		},
		func() float64 { return float64(m.FramesCaptured.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_capture_errors_total",
			Help: "Total upstream read errors",
		},
		func() float64 { return float64(m.CaptureErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_connect_attempts_total",
			Help: "Total upstream connection attempts",
		},
		func() float64 { return float64(m.ConnectAttempts.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_connect_errors_total",
			Help: "Total failed upstream connection attempts",
		},
		func() float64 { return float64(m.ConnectErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_reconnects_total",
			Help: "Total reconnect cycles after a lost connection",
		},
		func() float64 { return float64(m.Reconnects.Load()) },
	))

	// Consumer metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_snapshots_served_total",
			Help: "Total single-capture snapshots served",
		},
		func() float64 { return float64(m.SnapshotsServed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_stream_frames_sent_total",
			Help: "Total MJPEG frames sent to streaming clients",
		},
		func() float64 { return float64(m.StreamFramesSent.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_encode_errors_total",
			Help: "Total JPEG encode errors",
		},
		func() float64 { return float64(m.EncodeErrors.Load()) },
	))

	// Demand metrics
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_active_subscribers",
			Help: "Number of active frame subscribers",
		},
		func() float64 { return float64(m.ActiveSubscribers.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_capture_running",
			Help: "Capture loop state (0=dormant, 1=running)",
		},
		func() float64 { return float64(m.CaptureRunning.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_active_streams",
			Help: "Number of connected MJPEG streaming clients",
		},
		func() float64 { return float64(m.ActiveStreams.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "camera_stream_clients_total",
			Help: "Total MJPEG streaming clients connected",
		},
		func() float64 { return float64(m.StreamClientsTotal.Load()) },
	))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
