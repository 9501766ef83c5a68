package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	metricPrefix = "energy_"

	resultSuccess = "success"
	resultError   = "error"
	resultPartial = "partial"
)

// Metrics bundles the metrics of one pipeline run on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	stagedRows      *prometheus.CounterVec
	normalizeErrors *prometheus.CounterVec
	fillerRows      *prometheus.CounterVec

	relationRows    *prometheus.CounterVec
	relationTotal   *prometheus.CounterVec
	relationLatency *prometheus.HistogramVec

	runTotal       *prometheus.CounterVec
	runDuration    prometheus.Histogram
	runLastSuccess prometheus.Gauge
}

// New constructs and registers run metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stagedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "staged_rows_total",
				Help: "Raw rows read from staging by series",
			},
			[]string{"series"},
		),
		normalizeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "normalize_errors_total",
				Help: "Series that failed to normalize",
			},
			[]string{"series"},
		),
		fillerRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "filler_rows_total",
				Help: "Synthetic rows appended by reconciliation by series",
			},
			[]string{"series"},
		),
		relationRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "relation_rows_total",
				Help: "Rows written by relation",
			},
			[]string{"relation"},
		),
		relationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "relation_loads_total",
				Help: "Relation loads by result",
			},
			[]string{"relation", "result"},
		),
		relationLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "relation_load_latency_seconds",
				Help:    "Relation load latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"relation"},
		),
		runTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pipeline_runs_total",
				Help: "Pipeline runs by result",
			},
			[]string{"result"},
		),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "pipeline_run_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		runLastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "pipeline_last_success_timestamp_seconds",
			Help: "Unix time of the last fully successful run",
		}),
	}
	m.registry.MustRegister(
		m.stagedRows,
		m.normalizeErrors,
		m.fillerRows,
		m.relationRows,
		m.relationTotal,
		m.relationLatency,
		m.runTotal,
		m.runDuration,
		m.runLastSuccess,
	)
	return m
}

// Registry exposes the run registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// AddStagedRows records raw rows read for a series.
func (m *Metrics) AddStagedRows(series string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.stagedRows.WithLabelValues(labelOrUnknown(series)).Add(float64(count))
}

// IncNormalizeError records a series that failed to normalize.
func (m *Metrics) IncNormalizeError(series string) {
	if m == nil {
		return
	}
	m.normalizeErrors.WithLabelValues(labelOrUnknown(series)).Inc()
}

// AddFillers records synthetic rows appended to a series.
func (m *Metrics) AddFillers(series string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.fillerRows.WithLabelValues(labelOrUnknown(series)).Add(float64(count))
}

// ObserveRelationLoad records one relation load.
func (m *Metrics) ObserveRelationLoad(relation, result string, rows int, duration time.Duration) {
	if m == nil {
		return
	}
	relation = labelOrUnknown(relation)
	if result == "" {
		result = resultSuccess
	}
	m.relationTotal.WithLabelValues(relation, result).Inc()
	m.relationLatency.WithLabelValues(relation).Observe(duration.Seconds())
	if result == resultSuccess && rows > 0 {
		m.relationRows.WithLabelValues(relation).Add(float64(rows))
	}
}

// ObserveRun records the run outcome.
func (m *Metrics) ObserveRun(result string, duration time.Duration, finishedAt time.Time) {
	if m == nil {
		return
	}
	if result == "" {
		result = resultSuccess
	}
	m.runTotal.WithLabelValues(result).Inc()
	m.runDuration.Observe(duration.Seconds())
	if result == resultSuccess {
		m.runLastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// Push sends the run registry to a Prometheus Pushgateway.
func (m *Metrics) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	if m == nil {
		return errors.New("metrics: nil metrics")
	}
	if url == "" {
		return errors.New("metrics: empty pushgateway url")
	}
	if job == "" {
		job = "energy_pipeline"
	}
	pusher := push.New(url, job).Gatherer(m.registry)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}
	return pusher.PushContext(ctx)
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultPartial = resultPartial
)
