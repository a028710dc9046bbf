package xmetrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *metric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func metricNames(rm metricdata.ResourceMetrics) []string {
	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}
	return names
}

func TestNew_RecordsCounters(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	obs, err := New(provider.Meter("gatekit_test"))
	require.NoError(t, err)

	ctx := context.Background()
	obs.RecordAdmission(ctx, "local", true)
	obs.RecordAdmission(ctx, "local", false)
	obs.RecordVerdict(ctx, true)
	obs.RecordBreakerTransition(ctx, "inference", "closed", "open")

	names := metricNames(collect(t, reader))
	assert.Contains(t, names, "gatekit.admission.requests")
	assert.Contains(t, names, "gatekit.eligibility.verdicts")
	assert.Contains(t, names, "gatekit.breaker.transitions")
}

func TestNop_DoesNothing(t *testing.T) {
	obs := Nop()
	ctx := context.Background()

	// 只要不 panic 即可
	obs.RecordAdmission(ctx, "local", true)
	obs.RecordVerdict(ctx, false)
	obs.RecordBreakerTransition(ctx, "payment", "open", "half-open")
}
