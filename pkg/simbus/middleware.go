package simbus

import (
	"context"
	"time"

	"github.com/swarmlab/simbus/pkg/simbus/event"
)

// Next resumes the remaining middleware chain and, ultimately, dispatch.
// A middleware that returns without calling next short-circuits delivery:
// the log entry remains but no handler runs.
type Next func(ctx context.Context) error

// Middleware wraps event dispatch. Middleware run in descending priority
// order; ties keep registration order.
type Middleware struct {
	// Name identifies the middleware in logs.
	Name string

	// Priority orders the chain, highest first. The built-in metrics
	// middleware runs at MetricsPriority.
	Priority int

	// Process receives the event and the continuation for the rest of
	// the chain. The continuation may be invoked synchronously or from a
	// goroutine; Process must not return before delivery is meant to be
	// considered settled.
	Process func(ctx context.Context, evt event.Event, next Next) error
}

// MetricsPriority is the priority of the built-in timing middleware. It is
// the highest built-in priority, so it wraps the whole remaining chain.
const MetricsPriority = 1000

// AddMiddleware inserts the middleware keeping the chain sorted by
// descending priority. Middleware are never removed.
func (b *Bus) AddMiddleware(mw Middleware) {
	if mw.Process == nil {
		return
	}
	if mw.Name == "" {
		mw.Name = "anonymous"
	}

	b.chainMu.Lock()
	defer b.chainMu.Unlock()

	// Stable insert: after every middleware with priority >= mw.Priority.
	// A fresh slice keeps snapshots taken by in-flight publishes intact.
	i := len(b.middleware)
	for ; i > 0; i-- {
		if b.middleware[i-1].Priority >= mw.Priority {
			break
		}
	}
	chain := make([]Middleware, 0, len(b.middleware)+1)
	chain = append(chain, b.middleware[:i]...)
	chain = append(chain, mw)
	chain = append(chain, b.middleware[i:]...)
	b.middleware = chain
}

// runChain threads the event through chain[i:] and finally terminal. The
// remaining-chain index is passed explicitly rather than captured in a
// mutable closure.
func runChain(ctx context.Context, evt event.Event, chain []Middleware, i int, terminal Next) error {
	if i >= len(chain) {
		return terminal(ctx)
	}
	return chain[i].Process(ctx, evt, func(ctx context.Context) error {
		return runChain(ctx, evt, chain, i+1, terminal)
	})
}

// metricsMiddleware times the remaining chain and feeds the duration into
// the bus metrics and the metrics recorder. It records even when a
// lower-priority middleware short-circuits dispatch.
func (b *Bus) metricsMiddleware() Middleware {
	return Middleware{
		Name:     "metrics",
		Priority: MetricsPriority,
		Process: func(ctx context.Context, evt event.Event, next Next) error {
			start := time.Now()
			err := next(ctx)
			elapsed := time.Since(start)

			b.recordLatency(elapsed)
			b.setProcessingTime(evt.ID, elapsed)
			b.rec.RecordPublish(ctx, string(evt.Kind), elapsed)
			return err
		},
	}
}

func (b *Bus) middlewareChain() []Middleware {
	b.chainMu.RLock()
	defer b.chainMu.RUnlock()
	return b.middleware
}
