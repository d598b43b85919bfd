package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	rowsTotal    *prometheus.CounterVec
	synthesized  *prometheus.CounterVec
	superseded   prometheus.Counter
	ingestRows   *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
}

// New creates a recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerpull_source_fetch_total",
				Help: "Source fetches by result",
			},
			[]string{"source", "result"},
		),
		fetchLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "powerpull_source_fetch_seconds",
				Help:    "Duration of source fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		rowsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerpull_source_rows_total",
				Help: "Rows read from sources, accepted or dropped as malformed",
			},
			[]string{"source", "outcome"},
		),
		synthesized: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerpull_synthesized_buckets_total",
				Help: "Gap-filled buckets emitted",
			},
			[]string{"granularity"},
		),
		superseded: f.NewCounter(
			prometheus.CounterOpts{
				Name: "powerpull_view_superseded_total",
				Help: "View results dropped because a newer request arrived",
			},
		),
		ingestRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerpull_ingest_rows_total",
				Help: "Snapshot rows ingested by result",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerpull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordFetch(source string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.fetchTotal.WithLabelValues(source, result).Inc()
	r.fetchLatency.WithLabelValues(source).Observe(seconds)
}

func (r *Recorder) RecordRows(source string, accepted, dropped int) {
	r.rowsTotal.WithLabelValues(source, "accepted").Add(float64(accepted))
	r.rowsTotal.WithLabelValues(source, "dropped").Add(float64(dropped))
}

func (r *Recorder) RecordSynthesized(granularity string, buckets int) {
	r.synthesized.WithLabelValues(granularity).Add(float64(buckets))
}

func (r *Recorder) RecordSuperseded() {
	r.superseded.Inc()
}

func (r *Recorder) RecordIngest(result string, rows int) {
	r.ingestRows.WithLabelValues(result).Add(float64(rows))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
