// Package observability provides the ambient instrumentation for the bus:
// structured logging via slog, metrics via OpenTelemetry, and tracing via
// OpenTelemetry. Everything is opt-in; nil loggers and the no-op
// implementations make instrumentation free when disabled.
package observability

import "log/slog"

// LogPublish logs a completed publish.
func LogPublish(logger *slog.Logger, eventID, kind string, matched, failed int) {
	if logger == nil {
		return
	}
	logger.Debug("event published",
		slog.String("event_id", eventID),
		slog.String("kind", kind),
		slog.Int("matched", matched),
		slog.Int("failed", failed),
	)
}

// LogEventDropped logs an event discarded without entering the log.
func LogEventDropped(logger *slog.Logger, eventID, kind, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped",
		slog.String("event_id", eventID),
		slog.String("kind", kind),
		slog.String("reason", reason),
	)
}

// LogValidationReject logs a validator rejection.
func LogValidationReject(logger *slog.Logger, eventID, kind, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("event rejected",
		slog.String("event_id", eventID),
		slog.String("kind", kind),
		slog.String("reason", reason),
	)
}

// LogHandlerFailure logs a handler error (non-fatal, isolated).
func LogHandlerFailure(logger *slog.Logger, eventID, kind string, err error) {
	if logger == nil {
		return
	}
	logger.Error("handler failed",
		slog.String("event_id", eventID),
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)
}

// LogRetryDrop logs a retry item leaving the queue without delivery.
func LogRetryDrop(logger *slog.Logger, eventID, kind string, attempts int, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("retry item dropped",
		slog.String("event_id", eventID),
		slog.String("kind", kind),
		slog.Int("attempts", attempts),
		slog.String("reason", reason),
	)
}

// LogSnapshotSaved logs a successful retry-queue snapshot.
func LogSnapshotSaved(logger *slog.Logger, items, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("retry snapshot saved",
		slog.Int("items", items),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSnapshotLoaded logs a recovered retry-queue snapshot.
func LogSnapshotLoaded(logger *slog.Logger, items int) {
	if logger == nil {
		return
	}
	logger.Info("retry snapshot loaded",
		slog.Int("items", items),
	)
}

// LogSnapshotError logs a persistence failure (non-fatal; the queue
// continues in memory).
func LogSnapshotError(logger *slog.Logger, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("retry snapshot failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}
