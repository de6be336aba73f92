package simbus

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/swarmlab/simbus/pkg/simbus/event"
)

// Handler consumes an event. A non-nil error is recorded on the event's
// log entry and never propagated to the publisher or sibling handlers.
type Handler func(ctx context.Context, evt event.Event) error

// SubscribeOption configures a subscription.
type SubscribeOption func(*subscription)

// WithPredicate filters delivery: the handler only runs for events the
// predicate accepts.
func WithPredicate(pred func(evt event.Event) bool) SubscribeOption {
	return func(s *subscription) { s.predicate = pred }
}

// WithOneShot removes the subscription after its first delivery. A
// multi-kind one-shot fires at most once across all its kinds.
func WithOneShot() SubscribeOption {
	return func(s *subscription) { s.oneShot = true }
}

// subscription is one registration in the registry. The same record is
// shared across every kind it registered under.
type subscription struct {
	id         uint64
	kinds      []event.Kind
	handler    Handler
	handlerPtr uintptr
	predicate  func(evt event.Event) bool
	oneShot    bool
	fired      atomic.Bool
}

// handlerPointer is the identity used by Unsubscribe. Note this is the
// function's code pointer: distinct closures created from the same func
// literal compare equal.
func handlerPointer(h Handler) uintptr {
	return reflect.ValueOf(h).Pointer()
}

// Subscribe registers the handler under every listed kind and returns an
// idempotent unsubscribe function. Duplicate registrations of the same
// handler are tracked independently.
func (b *Bus) Subscribe(kinds []event.Kind, h Handler, opts ...SubscribeOption) func() {
	if b.closed.Load() || h == nil || len(kinds) == 0 {
		return func() {}
	}

	sub := &subscription{
		id:         b.nextID.Add(1),
		kinds:      append([]event.Kind(nil), kinds...),
		handler:    h,
		handlerPtr: handlerPointer(h),
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.regMu.Lock()
	for _, k := range sub.kinds {
		if b.subs[k] == nil {
			b.subs[k] = make(map[uint64]*subscription)
		}
		b.subs[k][sub.id] = sub
	}
	b.recomputeSubCountLocked()
	b.regMu.Unlock()

	return func() { b.removeSubscription(sub) }
}

// Unsubscribe removes, for each listed kind, the most recent registration
// whose handler is the same function as h. Missing registrations are
// ignored.
func (b *Bus) Unsubscribe(kinds []event.Kind, h Handler) {
	if h == nil {
		return
	}
	ptr := handlerPointer(h)

	b.regMu.Lock()
	defer b.regMu.Unlock()

	for _, k := range kinds {
		bucket := b.subs[k]
		var match *subscription
		for _, sub := range bucket {
			if sub.handlerPtr != ptr {
				continue
			}
			if match == nil || sub.id > match.id {
				match = sub
			}
		}
		if match != nil {
			delete(bucket, match.id)
		}
	}
	b.recomputeSubCountLocked()
}

// removeSubscription removes the record from every kind it registered
// under. Safe to call more than once.
func (b *Bus) removeSubscription(sub *subscription) {
	b.regMu.Lock()
	defer b.regMu.Unlock()

	for _, k := range sub.kinds {
		delete(b.subs[k], sub.id)
	}
	b.recomputeSubCountLocked()
}

// recomputeSubCountLocked recalculates the subscriber count from bucket
// sizes. Caller holds regMu.
func (b *Bus) recomputeSubCountLocked() {
	n := 0
	for _, bucket := range b.subs {
		n += len(bucket)
	}
	b.subCount = n
}

// subscriptionsFor snapshots the registrations for a kind.
func (b *Bus) subscriptionsFor(k event.Kind) []*subscription {
	b.regMu.RLock()
	defer b.regMu.RUnlock()

	bucket := b.subs[k]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*subscription, 0, len(bucket))
	for _, sub := range bucket {
		out = append(out, sub)
	}
	return out
}
