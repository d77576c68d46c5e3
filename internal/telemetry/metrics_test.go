package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewCycleMetrics_NilProvider(t *testing.T) {
	t.Parallel()

	m, err := NewCycleMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	// nil receivers are no-ops
	m.RecordCycle(context.Background(), "AB12CD", time.Second, true, 0)
	m.RecordChange(context.Background(), "AB12CD")
}

func TestCycleMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewCycleMetrics(mp)
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()
	m.RecordCycle(ctx, "AB12CD", 250*time.Millisecond, false, 1)
	m.RecordCycle(ctx, "AB12CD", 500*time.Millisecond, false, 2)
	m.RecordChange(ctx, "AB12CD")

	got := collect(t, reader)

	hist, ok := got["rdw_watch_cycle_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)

	gauge, ok := got["rdw_watch_consecutive_failures"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(2), gauge.DataPoints[0].Value)

	sum, ok := got["rdw_watch_record_changes_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestSourceMetrics_RecordResult(t *testing.T) {
	t.Parallel()

	var nilMetrics *SourceMetrics
	nilMetrics.RecordResult(context.Background(), "registry", "success", time.Second)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewSourceMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordResult(ctx, "registry", "success", 100*time.Millisecond)
	m.RecordResult(ctx, "registry", "timeout", 10*time.Second)
	m.RecordResult(ctx, "stolen_register", "unknown", time.Second)

	got := collect(t, reader)
	sum, ok := got["rdw_watch_source_results_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 3)

	_, ok = got["rdw_watch_source_latency_seconds"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)
}
