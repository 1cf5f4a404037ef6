package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/CodeMonkeyCybersecurity/gmapper/internal/config"
)

// Telemetry records traces and counters for the key-scanning pipeline.
type Telemetry interface {
	Tracer() trace.Tracer
	RecordKeyObserved(ctx context.Context, tool string)
	RecordValidation(ctx context.Context, valid bool, cached bool)
	RecordProbe(ctx context.Context, service string, enabled bool)
	RecordFinding(ctx context.Context, severity string)
	Shutdown(ctx context.Context) error
}

type telemetry struct {
	tracer         trace.Tracer
	meter          metric.Meter
	tracerProvider *sdktrace.TracerProvider

	keyCounter        metric.Int64Counter
	validationCounter metric.Int64Counter
	probeCounter      metric.Int64Counter
	findingCounter    metric.Int64Counter
}

func New(ctx context.Context, cfg config.TelemetryConfig) (Telemetry, error) {
	if !cfg.Enabled {
		return &noopTelemetry{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter

	switch cfg.ExporterType {
	case "otlp":
		client := otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(cfg.Endpoint),
			otlptracehttp.WithInsecure(),
		)
		exp, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRate)),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer := tp.Tracer(cfg.ServiceName)
	meter := otel.Meter(cfg.ServiceName)

	keyCounter, err := meter.Int64Counter("gmapper.keys.observed",
		metric.WithDescription("API keys observed in traffic"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	validationCounter, err := meter.Int64Counter("gmapper.validations.total",
		metric.WithDescription("Key validations performed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	probeCounter, err := meter.Int64Counter("gmapper.probes.total",
		metric.WithDescription("Service endpoint probes issued"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	findingCounter, err := meter.Int64Counter("gmapper.findings.total",
		metric.WithDescription("Flagged key findings emitted"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &telemetry{
		tracer:            tracer,
		meter:             meter,
		tracerProvider:    tp,
		keyCounter:        keyCounter,
		validationCounter: validationCounter,
		probeCounter:      probeCounter,
		findingCounter:    findingCounter,
	}, nil
}

func (t *telemetry) Tracer() trace.Tracer {
	return t.tracer
}

func (t *telemetry) RecordKeyObserved(ctx context.Context, tool string) {
	t.keyCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
	))
}

func (t *telemetry) RecordValidation(ctx context.Context, valid bool, cached bool) {
	t.validationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("valid", valid),
		attribute.Bool("cached", cached),
	))
}

func (t *telemetry) RecordProbe(ctx context.Context, service string, enabled bool) {
	t.probeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.Bool("enabled", enabled),
	))
}

func (t *telemetry) RecordFinding(ctx context.Context, severity string) {
	t.findingCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("severity", severity),
	))
}

func (t *telemetry) Shutdown(ctx context.Context) error {
	if t.tracerProvider != nil {
		return t.tracerProvider.Shutdown(ctx)
	}
	return nil
}

type noopTelemetry struct{}

func (n *noopTelemetry) Tracer() trace.Tracer {
	return otel.Tracer("gmapper/noop")
}

func (n *noopTelemetry) RecordKeyObserved(ctx context.Context, tool string)            {}
func (n *noopTelemetry) RecordValidation(ctx context.Context, valid bool, cached bool) {}
func (n *noopTelemetry) RecordProbe(ctx context.Context, service string, enabled bool) {}
func (n *noopTelemetry) RecordFinding(ctx context.Context, severity string)            {}
func (n *noopTelemetry) Shutdown(ctx context.Context) error                            { return nil }
