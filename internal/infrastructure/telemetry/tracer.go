// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope profiling for the reconcile service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Config holds telemetry configuration.
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	ServiceVersion    string
	Insecure          bool
	MetricsInterval   time.Duration
	ProfilingEnabled  bool
	PyroscopeURL      string
}

// Telemetry owns the providers installed as OpenTelemetry globals.
// With Enabled false every field stays nil and the globals stay no-op.
type Telemetry struct {
	tracer   *sdktrace.TracerProvider
	meter    *meterProvider
	logs     *loggerProvider
	profiler *Profiler
	logger   *zap.Logger
}

// Setup installs trace, metric and log providers that export to the
// collector over OTLP/gRPC, then starts the profiler when configured.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Telemetry, error) {
	t := &Telemetry{logger: logger}
	if !cfg.Enabled {
		logger.Info("Telemetry disabled")
		return t, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	if t.tracer, err = newTracerProvider(ctx, cfg, res); err != nil {
		return nil, err
	}
	if t.meter, err = newMeterProvider(ctx, cfg, res); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if t.logs, err = newLoggerProvider(ctx, cfg, res); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}

	if cfg.ProfilingEnabled {
		if t.profiler, err = StartProfiler(cfg.ServiceName, cfg.PyroscopeURL, logger); err != nil {
			return nil, errors.Join(err, t.Shutdown(ctx))
		}
		// span_id pprof labels require the profiler to be running
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(t.tracer))
	}

	logger.Info("Telemetry initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.Bool("profiling", cfg.ProfilingEnabled),
	)
	return t, nil
}

func newResource(cfg Config) (*resource.Resource, error) {
	version := cfg.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(Sampler(cfg.SamplingRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

// Sampler maps a ratio onto the cheapest matching sampler
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1.0:
		return sdktrace.AlwaysSample()
	case ratio <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// Enabled reports whether exporters are running
func (t *Telemetry) Enabled() bool {
	return t.tracer != nil
}

// Shutdown flushes and stops every provider that was started.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if t.profiler != nil {
		errs = append(errs, t.profiler.Stop())
	}
	if t.logs != nil {
		errs = append(errs, t.logs.Shutdown(ctx))
	}
	if t.meter != nil {
		errs = append(errs, t.meter.Shutdown(ctx))
	}
	if t.tracer != nil {
		errs = append(errs, t.tracer.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		t.logger.Error("Telemetry shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
