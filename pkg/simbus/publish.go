package simbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/swarmlab/simbus/pkg/simbus/event"
	"github.com/swarmlab/simbus/pkg/simbus/observability"
)

// Result describes the outcome of a publish.
type Result struct {
	EventID string

	// Matched is the number of handlers that were invoked after
	// predicate and TTL checks.
	Matched int

	// Delivered is true when dispatch ran and no invoked handler failed.
	Delivered bool

	// Errors holds one message per failed handler.
	Errors []string

	// Dropped is true when the bus was paused and the event discarded.
	Dropped bool
}

// Publish validates the event, appends it to the log, threads it through
// the middleware chain, and dispatches it to every matching subscriber.
// Handlers all start before any is awaited; each handler's failure is
// recorded on the log entry without affecting siblings or the publisher.
//
// Only validation failures are returned as errors. While the bus is paused
// the event is dropped, not queued and not logged.
func (b *Bus) Publish(ctx context.Context, evt event.Event) (*Result, error) {
	if b.closed.Load() {
		return nil, ErrBusClosed
	}
	if b.paused.Load() {
		observability.LogEventDropped(b.logger, evt.ID, string(evt.Kind), "bus paused")
		return &Result{EventID: evt.ID, Dropped: true}, nil
	}

	evt = evt.Clone()

	if verr := b.runValidators(evt); verr != nil {
		observability.LogValidationReject(b.logger, evt.ID, string(evt.Kind), verr.Reason)
		return nil, verr
	}

	ctx, span := b.spans.StartPublishSpan(ctx, string(evt.Kind), evt.ID)

	entry := b.appendEntry(evt)
	b.totalEvents.Add(1)

	res := &Result{EventID: evt.ID}
	chain := b.middlewareChain()

	err := runChain(ctx, evt, chain, 0, func(ctx context.Context) error {
		b.dispatch(ctx, evt, entry, res)
		return nil
	})

	b.logMu.Lock()
	res.Delivered = entry.Delivered
	res.Errors = append([]string(nil), entry.DeliveryErrors...)
	b.logMu.Unlock()

	b.spans.EndSpanWithError(span, err)
	observability.LogPublish(b.logger, evt.ID, string(evt.Kind), res.Matched, len(res.Errors))

	if b.cfg.RetryFailedDeliveries && len(res.Errors) > 0 {
		b.enqueueRetry(evt)
	}
	return res, err
}

// dispatch invokes every matching handler for the event's kind, isolating
// failures per handler. One-shot subscriptions that fired are removed from
// every kind they registered under.
func (b *Bus) dispatch(ctx context.Context, evt event.Event, entry *LogEntry, res *Result) {
	subs := b.subscriptionsFor(evt.Kind)

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		errs     []string
		oneShots []*subscription
	)

	for _, sub := range subs {
		if sub.predicate != nil && !sub.predicate(evt) {
			continue
		}
		// Staleness is evaluated per handler at dispatch time.
		if evt.Expired(time.Now()) {
			continue
		}
		if sub.oneShot {
			if !sub.fired.CompareAndSwap(false, true) {
				continue
			}
			oneShots = append(oneShots, sub)
		}

		res.Matched++
		wg.Add(1)
		go func(sub *subscription) {
			defer wg.Done()
			if err := b.invoke(ctx, sub, evt); err != nil {
				errMu.Lock()
				errs = append(errs, err.Error())
				errMu.Unlock()
				b.rec.RecordHandlerError(ctx, string(evt.Kind))
				observability.LogHandlerFailure(b.logger, evt.ID, string(evt.Kind), err)
			}
		}(sub)
	}
	wg.Wait()

	for _, sub := range oneShots {
		b.removeSubscription(sub)
	}

	b.logMu.Lock()
	entry.DeliveryErrors = append(entry.DeliveryErrors, errs...)
	entry.Delivered = len(entry.DeliveryErrors) == 0
	b.logMu.Unlock()

	if n := len(errs); n > 0 {
		b.errorCount.Add(int64(n))
	}
}

// invoke runs a single handler, converting panics into errors.
func (b *Bus) invoke(ctx context.Context, sub *subscription, evt event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %d panic: %v", sub.id, r)
		}
	}()
	if herr := sub.handler(ctx, evt); herr != nil {
		return fmt.Errorf("handler %d: %w", sub.id, herr)
	}
	return nil
}
