// Package tracing provides distributed tracing support for the
// preparation pipeline and search engine using OpenTelemetry.
package tracing

import (
	"context"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds OpenTelemetry configuration for one process.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
}

var globalTracer trace.Tracer

// Init initializes OpenTelemetry with the given configuration, exporting
// spans to stderr whenever cfg.Enabled is set. Returns a shutdown function
// that must be called on process exit.
func Init(cfg Config) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stderr),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	globalTracer = tp.Tracer(cfg.ServiceName)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// Tracer returns the global tracer, falling back to a no-op tracer if Init
// was never called.
func Tracer() trace.Tracer {
	if globalTracer == nil {
		return otel.Tracer("noop")
	}
	return globalTracer
}

// SearchSpan starts a span covering one search(error_line_id) invocation.
func SearchSpan(ctx context.Context, requestID string, errorLineID int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "rootcause.search",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("rootcause.request_id", requestID),
			attribute.Int("rootcause.error_line_id", errorLineID),
		),
	)
}

// StrategySpan starts a span covering one strategy's pass over a
// MessageTable within a search.
func StrategySpan(ctx context.Context, strategyName string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "rootcause.strategy",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("rootcause.strategy", strategyName)),
	)
}

// PreparationStageSpan starts a span covering one stage of the preparation
// pipeline (e.g. "normalize", "template_assign", "persist").
func PreparationStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "rootcause.preparation."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("rootcause.stage", stage)),
	)
}

// RecordError records an error on the span, if any.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
}

// SetResultCount records the size of a RootCauseSet on the span.
func SetResultCount(span trace.Span, count int) {
	span.SetAttributes(attribute.Int("rootcause.result_count", count))
}
