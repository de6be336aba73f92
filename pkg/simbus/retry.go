package simbus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/swarmlab/simbus/pkg/simbus/event"
	"github.com/swarmlab/simbus/pkg/simbus/observability"
	"github.com/swarmlab/simbus/pkg/simbus/store"
)

// snapshotKey is the fixed key the retry queue is persisted under.
const snapshotKey = "simbus/retry-queue"

// snapshotSchemaVersion guards snapshot compatibility across releases.
// Snapshots with a different version are discarded at startup.
const snapshotSchemaVersion = 1

// retryItem is one entry in the retry queue.
type retryItem struct {
	Event      event.Event `json:"event"`
	RetryCount int         `json:"retry_count"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}

type retrySnapshot struct {
	SchemaVersion int         `json:"schema_version"`
	SavedAt       time.Time   `json:"saved_at"`
	Items         []retryItem `json:"items"`
}

// RetryStats describes the current state of the retry queue.
type RetryStats struct {
	Depth      int
	Oldest     time.Time // zero when the queue is empty
	Newest     time.Time
	InProgress bool
}

// RetryStats returns a snapshot of retry-queue state.
func (b *Bus) RetryStats() RetryStats {
	b.retryMu.Lock()
	defer b.retryMu.Unlock()

	s := RetryStats{
		Depth:      len(b.retryQueue),
		InProgress: b.retryBusy.Load(),
	}
	if len(b.retryQueue) > 0 {
		s.Oldest = b.retryQueue[0].EnqueuedAt
		s.Newest = b.retryQueue[len(b.retryQueue)-1].EnqueuedAt
		for _, it := range b.retryQueue {
			if it.EnqueuedAt.Before(s.Oldest) {
				s.Oldest = it.EnqueuedAt
			}
			if it.EnqueuedAt.After(s.Newest) {
				s.Newest = it.EnqueuedAt
			}
		}
	}
	return s
}

// ClearRetryQueue discards every queued item.
func (b *Bus) ClearRetryQueue() {
	b.retryMu.Lock()
	b.retryQueue = nil
	b.retryMu.Unlock()
}

// enqueueRetry appends the event to the retry queue. When the queue is
// full the event is dropped and only the error counter moves.
func (b *Bus) enqueueRetry(evt event.Event) {
	b.retryMu.Lock()
	defer b.retryMu.Unlock()

	if len(b.retryQueue) >= b.cfg.RetryQueueSize {
		b.errorCount.Add(1)
		b.rec.RecordRetryDrop(context.Background(), "queue full")
		observability.LogRetryDrop(b.logger, evt.ID, string(evt.Kind), 0, "queue full")
		return
	}
	b.retryQueue = append(b.retryQueue, retryItem{
		Event:      evt.Clone(),
		EnqueuedAt: time.Now(),
	})
}

// runRetryLoop drains the queue on a fixed cadence until Stop.
func (b *Bus) runRetryLoop(ctx context.Context) {
	defer b.loopWG.Done()

	ticker := time.NewTicker(b.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drainOne(ctx)
		}
	}
}

// drainOne processes the item at the head of the queue: expired items are
// dropped, failures move to the back until the attempt bound, and every
// SnapshotEvery dequeues the queue is persisted.
func (b *Bus) drainOne(ctx context.Context) {
	b.retryMu.Lock()
	if len(b.retryQueue) == 0 {
		b.retryMu.Unlock()
		return
	}
	item := b.retryQueue[0]
	b.retryQueue = b.retryQueue[1:]
	b.dequeues++
	shouldSnapshot := b.dequeues%b.cfg.SnapshotEvery == 0
	b.retryMu.Unlock()

	b.retryBusy.Store(true)
	defer b.retryBusy.Store(false)

	ctx, span := b.spans.StartRetrySpan(ctx, item.Event.ID, item.RetryCount)

	switch {
	case item.Event.TTL > 0 && !time.Now().Before(item.EnqueuedAt.Add(item.Event.TTL)):
		// Stale since enqueuing: silent drop.
		observability.LogRetryDrop(b.logger, item.Event.ID, string(item.Event.Kind), item.RetryCount, "ttl elapsed")
		b.spans.EndSpanWithError(span, nil)

	default:
		err := b.deliverRetry(ctx, item)
		if err != nil {
			item.RetryCount++
			if item.RetryCount >= b.cfg.MaxRetryAttempts {
				// Exhausted: drop silently, only the error counter moves.
				b.errorCount.Add(1)
				b.rec.RecordRetryDrop(ctx, "max attempts")
				observability.LogRetryDrop(b.logger, item.Event.ID, string(item.Event.Kind), item.RetryCount, "max attempts")
			} else {
				b.retryMu.Lock()
				b.retryQueue = append(b.retryQueue, item)
				b.retryMu.Unlock()
			}
		}
		b.spans.EndSpanWithError(span, err)
	}

	if shouldSnapshot {
		b.snapshotRetryQueue(ctx)
	}
}

// deliverRetry runs the queue's own validate/dispatch pass and reflects
// the attempt on the event's log entry.
func (b *Bus) deliverRetry(ctx context.Context, item retryItem) error {
	if verr := b.runValidators(item.Event); verr != nil {
		b.recordRetryAttempt(item, false, []string{verr.Reason})
		return verr
	}

	scratch := &LogEntry{Event: item.Event}
	res := &Result{EventID: item.Event.ID}
	b.dispatch(ctx, item.Event, scratch, res)

	b.logMu.Lock()
	errs := append([]string(nil), scratch.DeliveryErrors...)
	b.logMu.Unlock()

	delivered := len(errs) == 0
	b.recordRetryAttempt(item, delivered, errs)
	if !delivered {
		return errors.New("retry delivery failed")
	}
	return nil
}

// recordRetryAttempt updates the log entry for the event, appending one
// when the event is not in the log (snapshot-recovered items).
func (b *Bus) recordRetryAttempt(item retryItem, delivered bool, errs []string) {
	b.logMu.Lock()
	defer b.logMu.Unlock()

	for i := len(b.log) - 1; i >= 0; i-- {
		e := b.log[i]
		if e.Event.ID != item.Event.ID {
			continue
		}
		e.RetryCount = item.RetryCount + 1
		e.Delivered = delivered
		e.DeliveryErrors = append(e.DeliveryErrors, errs...)
		return
	}

	entry := &LogEntry{
		Event:          item.Event,
		Delivered:      delivered,
		DeliveryErrors: errs,
		RetryCount:     item.RetryCount + 1,
	}
	if len(b.log) >= b.cfg.LogCapacity && len(b.log) > 0 {
		b.log = append(b.log[:0], b.log[1:]...)
	}
	b.log = append(b.log, entry)
}

// snapshotRetryQueue persists the most recent items under snapshotKey.
// Persistence failures are logged and ignored; the queue continues in
// memory.
func (b *Bus) snapshotRetryQueue(ctx context.Context) {
	if b.store == nil {
		return
	}

	b.retryMu.Lock()
	items := b.retryQueue
	if len(items) > b.cfg.SnapshotLimit {
		items = items[len(items)-b.cfg.SnapshotLimit:]
	}
	snap := retrySnapshot{
		SchemaVersion: snapshotSchemaVersion,
		SavedAt:       time.Now(),
		Items:         append([]retryItem(nil), items...),
	}
	b.retryMu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		observability.LogSnapshotError(b.logger, "marshal", err)
		return
	}
	if err := b.store.Save(snapshotKey, data); err != nil {
		observability.LogSnapshotError(b.logger, "save", err)
		return
	}
	b.rec.RecordSnapshot(ctx, int64(len(data)))
	observability.LogSnapshotSaved(b.logger, len(snap.Items), len(data))
}

// loadRetrySnapshot reloads the persisted queue at startup. Missing
// snapshots are fine; version mismatches discard the snapshot with a
// warning.
func (b *Bus) loadRetrySnapshot(_ context.Context) {
	if b.store == nil {
		return
	}

	data, err := b.store.Load(snapshotKey)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		observability.LogSnapshotError(b.logger, "load", err)
		return
	}

	var snap retrySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		observability.LogSnapshotError(b.logger, "decode", err)
		return
	}
	if snap.SchemaVersion != snapshotSchemaVersion {
		observability.LogSnapshotError(b.logger, "version",
			errors.New("unsupported snapshot schema version"))
		return
	}

	items := snap.Items
	if len(items) > b.cfg.RetryQueueSize {
		items = items[len(items)-b.cfg.RetryQueueSize:]
	}

	b.retryMu.Lock()
	b.retryQueue = append(items, b.retryQueue...)
	b.retryMu.Unlock()

	observability.LogSnapshotLoaded(b.logger, len(items))
}
