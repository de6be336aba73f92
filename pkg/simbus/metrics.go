package simbus

import "time"

// Snapshot is a point-in-time copy of the bus metrics.
type Snapshot struct {
	// TotalEvents counts accepted publishes (validated and logged),
	// including replays and retry re-deliveries that entered the log.
	TotalEvents int64

	// ActiveSubscribers is the sum of registry bucket sizes; a handler
	// registered under N kinds counts N times.
	ActiveSubscribers int

	// AverageLatencyMs is the running mean duration of the middleware
	// chain plus dispatch, as timed by the built-in metrics middleware.
	AverageLatencyMs float64

	// ErrorCount counts handler failures and exhausted retry items.
	ErrorCount int64

	// UptimeMs is the time since the bus was constructed.
	UptimeMs int64
}

// Metrics returns the current metrics snapshot.
func (b *Bus) Metrics() Snapshot {
	b.latMu.Lock()
	var avg float64
	if b.latSamples > 0 {
		avg = float64(b.latTotal.Microseconds()) / float64(b.latSamples) / 1000.0
	}
	b.latMu.Unlock()

	b.regMu.RLock()
	subs := b.subCount
	b.regMu.RUnlock()

	return Snapshot{
		TotalEvents:       b.totalEvents.Load(),
		ActiveSubscribers: subs,
		AverageLatencyMs:  avg,
		ErrorCount:        b.errorCount.Load(),
		UptimeMs:          time.Since(b.startedAt).Milliseconds(),
	}
}

func (b *Bus) recordLatency(d time.Duration) {
	b.latMu.Lock()
	b.latTotal += d
	b.latSamples++
	b.latMu.Unlock()
}
