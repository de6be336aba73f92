package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records bus metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPublish records one publish with its end-to-end duration.
	RecordPublish(ctx context.Context, kind string, duration time.Duration)

	// RecordHandlerError records a failed handler invocation.
	RecordHandlerError(ctx context.Context, kind string)

	// RecordRetryDrop records a retry item dropped without delivery.
	RecordRetryDrop(ctx context.Context, reason string)

	// RecordSnapshot records a persisted retry-queue snapshot.
	RecordSnapshot(ctx context.Context, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	publishes      metric.Int64Counter
	publishLatency metric.Float64Histogram
	handlerErrors  metric.Int64Counter
	retryDrops     metric.Int64Counter
	snapshotSize   metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("simbus")

	publishes, err := meter.Int64Counter("simbus.publish.count",
		metric.WithDescription("Number of accepted publishes"),
	)
	if err != nil {
		return nil, err
	}

	publishLatency, err := meter.Float64Histogram("simbus.publish.latency_ms",
		metric.WithDescription("Middleware chain plus dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("simbus.handler.errors",
		metric.WithDescription("Number of failed handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	retryDrops, err := meter.Int64Counter("simbus.retry.drops",
		metric.WithDescription("Number of retry items dropped without delivery"),
	)
	if err != nil {
		return nil, err
	}

	snapshotSize, err := meter.Int64Histogram("simbus.snapshot.size_bytes",
		metric.WithDescription("Retry-queue snapshot size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		publishes:      publishes,
		publishLatency: publishLatency,
		handlerErrors:  handlerErrors,
		retryDrops:     retryDrops,
		snapshotSize:   snapshotSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordPublish records one publish.
func (m *otelMetrics) RecordPublish(ctx context.Context, kind string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("kind", kind),
	}
	m.publishes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.publishLatency.Record(ctx, float64(duration.Microseconds())/1000.0, metric.WithAttributes(attrs...))
}

// RecordHandlerError records a failed handler invocation.
func (m *otelMetrics) RecordHandlerError(ctx context.Context, kind string) {
	m.handlerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

// RecordRetryDrop records a dropped retry item.
func (m *otelMetrics) RecordRetryDrop(ctx context.Context, reason string) {
	m.retryDrops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordSnapshot records a persisted snapshot.
func (m *otelMetrics) RecordSnapshot(ctx context.Context, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes)
}
