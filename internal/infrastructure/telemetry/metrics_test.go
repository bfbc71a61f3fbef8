package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMatchMetrics_RecordMatchRun(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewMatchMetrics(provider)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordMatchRun(ctx, "lotte", 10, 7)
	m.RecordMatchRun(ctx, "lotte", 4, 4)
	m.RecordMatchRun(ctx, "shilla", 0, 0)

	data := collect(t, reader)

	runs, ok := data["reconcile.match.runs"].(metricdata.Sum[int64])
	require.True(t, ok)
	byVariant := map[string]int64{}
	for _, dp := range runs.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("variant"))
		byVariant[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"lotte": 2, "shilla": 1}, byVariant)

	matched, ok := data["reconcile.match.matched"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range matched.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(11), total)

	// empty runs have no ratio
	ratio, ok := data["reconcile.match.ratio"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, ratio.DataPoints, 1)
	assert.Equal(t, uint64(2), ratio.DataPoints[0].Count)
}

func TestNewMatchMetrics_GlobalProvider(t *testing.T) {
	m, err := NewMatchMetrics(nil)
	require.NoError(t, err)
	m.RecordMatchRun(context.Background(), "lotte", 1, 1)
}
