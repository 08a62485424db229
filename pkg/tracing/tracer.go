// Package tracing provides the OpenTelemetry trace sink for the engine. One
// span is emitted per state transition, which makes a run's control flow
// replayable post hoc.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ExecutionIDKey = "voxflow.execution.id"
	PipelineKey    = "voxflow.pipeline"
	StateNameKey   = "voxflow.state.name"
	StateTypeKey   = "voxflow.state.type"
	OperationKey   = "voxflow.operation"
	OutcomeKey     = "voxflow.outcome"
	TransitionsKey = "voxflow.transitions"
	PayloadKey     = "voxflow.payload"
)

// Provider bundles the tracer with its provider so callers can flush spans
// at shutdown.
type Provider struct {
	Tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// NewProvider builds an OTLP/HTTP-exporting tracer provider registered as
// the global one. The exporter endpoint comes from the standard OTEL
// environment variables.
func NewProvider(ctx context.Context, serviceName string) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return &Provider{Tracer: tp.Tracer(serviceName), provider: tp}, nil
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}

// SetError records err on the span and flags the span status.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
}
