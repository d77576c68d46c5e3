package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// CycleMetricsMeterName is the name used for the refresh cycle meter
	CycleMetricsMeterName = "github.com/rdwwatch/rdw-vehicle-watch/cycle"

	// SourceMetricsMeterName is the name used for the per-source meter
	SourceMetricsMeterName = "github.com/rdwwatch/rdw-vehicle-watch/sources"
)

// CycleMetrics holds the instruments describing refresh cycles
type CycleMetrics struct {
	cycleDuration       metric.Float64Histogram
	consecutiveFailures metric.Int64Gauge
	notifications       metric.Int64Counter
}

// NewCycleMetrics creates a new CycleMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewCycleMetrics(provider metric.MeterProvider) (*CycleMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(CycleMetricsMeterName)

	cycleDuration, err := meter.Float64Histogram(
		"rdw_watch_cycle_duration_seconds",
		metric.WithDescription("Duration of refresh cycles in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30),
	)
	if err != nil {
		return nil, err
	}

	consecutiveFailures, err := meter.Int64Gauge(
		"rdw_watch_consecutive_failures",
		metric.WithDescription("Number of refresh cycles failed in a row"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, err
	}

	notifications, err := meter.Int64Counter(
		"rdw_watch_record_changes_total",
		metric.WithDescription("Number of committed record changes delivered to subscribers"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	return &CycleMetrics{
		cycleDuration:       cycleDuration,
		consecutiveFailures: consecutiveFailures,
		notifications:       notifications,
	}, nil
}

// RecordCycle records the outcome of one committed cycle
func (m *CycleMetrics) RecordCycle(ctx context.Context, plate string, duration time.Duration, success bool, failures int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("plate", plate))
	m.cycleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("plate", plate),
		attribute.Bool("success", success),
	))
	m.consecutiveFailures.Record(ctx, int64(failures), attrs)
}

// RecordChange counts a record change published to subscribers
func (m *CycleMetrics) RecordChange(ctx context.Context, plate string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("plate", plate)))
}

// SourceMetrics holds the per-source instruments
type SourceMetrics struct {
	results metric.Int64Counter
	latency metric.Float64Histogram
}

// NewSourceMetrics creates a new SourceMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSourceMetrics(provider metric.MeterProvider) (*SourceMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SourceMetricsMeterName)

	results, err := meter.Int64Counter(
		"rdw_watch_source_results_total",
		metric.WithDescription("Source call results by source and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram(
		"rdw_watch_source_latency_seconds",
		metric.WithDescription("Latency of source calls in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	return &SourceMetrics{results: results, latency: latency}, nil
}

// RecordResult records one source call
func (m *SourceMetrics) RecordResult(ctx context.Context, source, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	m.results.Add(ctx, 1, attrs)
	m.latency.Record(ctx, latency.Seconds(), attrs)
}
