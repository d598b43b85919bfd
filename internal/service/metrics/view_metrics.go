package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ViewMetrics instruments the series and view endpoints. A nil receiver is a no-op.
type ViewMetrics struct {
	latency     *prometheus.HistogramVec
	errors      *prometheus.CounterVec
	connections prometheus.Gauge
}

func NewViewMetrics(reg prometheus.Registerer) *ViewMetrics {
	f := promauto.With(reg)
	return &ViewMetrics{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "powerpull",
				Subsystem: "view",
				Name:      "latency_seconds",
				Help:      "Latency of series computations by endpoint",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "powerpull",
				Subsystem: "view",
				Name:      "errors_total",
				Help:      "Errors by endpoint and kind",
			},
			[]string{"endpoint", "kind"},
		),
		connections: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "powerpull",
				Subsystem: "view",
				Name:      "ws_connections",
				Help:      "Open live view websocket connections",
			},
		),
	}
}

func (m *ViewMetrics) Observe(endpoint string, start time.Time) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (m *ViewMetrics) Error(endpoint, kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(endpoint, kind).Inc()
}

// Connected adjusts the open connection gauge by delta.
func (m *ViewMetrics) Connected(delta int) {
	if m == nil {
		return
	}
	m.connections.Add(float64(delta))
}
