package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "github.com/dutyfree/reconcile"

type meterProvider = sdkmetric.MeterProvider

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	interval := cfg.MetricsInterval
	if interval == 0 {
		interval = 60 * time.Second
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// MatchMetrics records reconciliation outcomes. It satisfies the
// application layer's metrics hook.
type MatchMetrics struct {
	runs     metric.Int64Counter
	receipts metric.Int64Counter
	matched  metric.Int64Counter
	ratio    metric.Float64Histogram
}

// NewMatchMetrics creates the instruments on the given meter provider.
// Pass nil to use the global provider.
func NewMatchMetrics(provider metric.MeterProvider) (*MatchMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	runs, err := meter.Int64Counter("reconcile.match.runs",
		metric.WithDescription("Matching runs executed"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter reconcile.match.runs: %w", err)
	}
	receipts, err := meter.Int64Counter("reconcile.match.receipts",
		metric.WithDescription("Receipts considered by matching runs"),
		metric.WithUnit("{receipt}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter reconcile.match.receipts: %w", err)
	}
	matched, err := meter.Int64Counter("reconcile.match.matched",
		metric.WithDescription("Receipts matched to a reference row"),
		metric.WithUnit("{receipt}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter reconcile.match.matched: %w", err)
	}
	ratio, err := meter.Float64Histogram("reconcile.match.ratio",
		metric.WithDescription("Share of receipts matched per run"),
		metric.WithExplicitBucketBoundaries(0, 0.25, 0.5, 0.75, 0.9, 0.95, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram reconcile.match.ratio: %w", err)
	}

	return &MatchMetrics{runs: runs, receipts: receipts, matched: matched, ratio: ratio}, nil
}

// RecordMatchRun records one matching run for a store variant
func (m *MatchMetrics) RecordMatchRun(ctx context.Context, variant string, total, matched int) {
	attrs := metric.WithAttributes(attribute.String("variant", variant))
	m.runs.Add(ctx, 1, attrs)
	m.receipts.Add(ctx, int64(total), attrs)
	m.matched.Add(ctx, int64(matched), attrs)
	if total > 0 {
		m.ratio.Record(ctx, float64(matched)/float64(total), attrs)
	}
}
