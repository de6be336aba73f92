package observability

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("simbus")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartPublishSpan starts a span covering validation, the middleware
	// chain, and dispatch for one publish.
	StartPublishSpan(ctx context.Context, kind, eventID string) (context.Context, trace.Span)

	// StartRetrySpan starts a span for one retry-queue delivery attempt.
	StartRetrySpan(ctx context.Context, eventID string, attempt int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// Configure the global tracer provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartPublishSpan starts a span for one publish.
func (m *otelSpanManager) StartPublishSpan(ctx context.Context, kind, eventID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "simbus.publish",
		trace.WithAttributes(
			attribute.String("event.kind", kind),
			attribute.String("event.id", eventID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartRetrySpan starts a span for one retry attempt.
func (m *otelSpanManager) StartRetrySpan(ctx context.Context, eventID string, attempt int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "simbus.retry.attempt."+strconv.Itoa(attempt),
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.Int("attempt", attempt),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
