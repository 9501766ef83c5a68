package interfaces

import (
	"context"
	"log"

	"energy-tracker/internal/observability/metrics"
	series "energy-tracker/internal/series/domain"
)

// LoggingObserver logs every relation written by the loader.
type LoggingObserver struct {
	logger *log.Logger
}

// NewLoggingObserver constructs a logging observer.
func NewLoggingObserver(logger *log.Logger) *LoggingObserver {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingObserver{logger: logger}
}

// RelationLoaded logs the event.
func (o *LoggingObserver) RelationLoaded(_ context.Context, event series.LoadEvent) {
	if o == nil {
		return
	}
	o.logger.Printf("relation loaded: run=%s relation=%s rows=%d duration=%s", event.RunID, event.Relation, event.Rows, event.Duration)
}

// MetricsObserver records relation loads on the run metrics.
type MetricsObserver struct {
	metrics *metrics.Metrics
}

// NewMetricsObserver constructs a metrics observer.
func NewMetricsObserver(m *metrics.Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

// RelationLoaded records the event.
func (o *MetricsObserver) RelationLoaded(_ context.Context, event series.LoadEvent) {
	if o == nil {
		return
	}
	o.metrics.ObserveRelationLoad(event.Relation, metrics.ResultSuccess, event.Rows, event.Duration)
}

// RecordFailures records the relations a load rejected. Observers only see
// successful relations, so failures are taken from the summary.
func (o *MetricsObserver) RecordFailures(summary series.LoadSummary) {
	if o == nil {
		return
	}
	for _, rel := range summary.Failed() {
		o.metrics.ObserveRelationLoad(rel.Relation, metrics.ResultError, 0, rel.Duration)
	}
}
