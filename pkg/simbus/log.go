package simbus

import (
	"time"

	"github.com/swarmlab/simbus/pkg/simbus/event"
)

// LogEntry is an event enriched with its delivery outcome. Entries are
// mutated by the dispatcher and the retry path while in flight and frozen
// afterwards; Query and Log always return copies.
type LogEntry struct {
	Event          event.Event
	Delivered      bool
	ProcessingTime time.Duration
	DeliveryErrors []string
	RetryCount     int
}

func (e *LogEntry) clone() LogEntry {
	c := *e
	c.Event = e.Event.Clone()
	if len(e.DeliveryErrors) > 0 {
		c.DeliveryErrors = append([]string(nil), e.DeliveryErrors...)
	}
	return c
}

// Filter selects log entries. Zero-valued fields are ignored; supplied
// predicates must all match.
type Filter struct {
	// Kinds matches entries whose kind is any of the listed kinds.
	Kinds []event.Kind

	// SourceID matches the event source exactly.
	SourceID string

	// TargetID matches the event target exactly.
	TargetID string

	// Since/Until bound the event creation time (inclusive since,
	// exclusive until).
	Since time.Time
	Until time.Time

	// FailedOnly keeps entries with at least one delivery error.
	FailedOnly bool

	// Tags keeps entries sharing at least one tag with the filter.
	Tags []string
}

func (f Filter) matches(e *LogEntry) bool {
	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			if e.Event.Kind == k {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.SourceID != "" && e.Event.SourceID != f.SourceID {
		return false
	}
	if f.TargetID != "" && e.Event.TargetID != f.TargetID {
		return false
	}
	if !f.Since.IsZero() && e.Event.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.Event.CreatedAt.Before(f.Until) {
		return false
	}
	if f.FailedOnly && len(e.DeliveryErrors) == 0 {
		return false
	}
	if len(f.Tags) > 0 {
		ok := false
		for _, t := range f.Tags {
			if e.Event.HasTag(t) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// appendEntry adds a log entry for the event, evicting the oldest entry
// once the capacity is reached.
func (b *Bus) appendEntry(evt event.Event) *LogEntry {
	entry := &LogEntry{Event: evt}

	b.logMu.Lock()
	if len(b.log) >= b.cfg.LogCapacity {
		drop := len(b.log) - b.cfg.LogCapacity + 1
		b.log = append(b.log[:0], b.log[drop:]...)
	}
	b.log = append(b.log, entry)
	b.logMu.Unlock()

	return entry
}

// setProcessingTime records the timed chain duration on the entry for the
// event, searching from the newest entry backwards.
func (b *Bus) setProcessingTime(eventID string, d time.Duration) {
	b.logMu.Lock()
	defer b.logMu.Unlock()
	for i := len(b.log) - 1; i >= 0; i-- {
		if b.log[i].Event.ID == eventID {
			b.log[i].ProcessingTime = d
			return
		}
	}
}

// Query returns copies of the log entries matching every supplied filter
// predicate, oldest first.
func (b *Bus) Query(f Filter) []LogEntry {
	b.logMu.Lock()
	defer b.logMu.Unlock()

	var out []LogEntry
	for _, e := range b.log {
		if f.matches(e) {
			out = append(out, e.clone())
		}
	}
	return out
}

// Log returns a copy of the full event log, oldest first.
func (b *Bus) Log() []LogEntry {
	return b.Query(Filter{})
}

// ClearLog removes entries older than the given age. A zero or negative
// age clears the whole log.
func (b *Bus) ClearLog(olderThan time.Duration) {
	b.logMu.Lock()
	defer b.logMu.Unlock()

	if olderThan <= 0 {
		b.log = nil
		return
	}
	cutoff := time.Now().Add(-olderThan)
	kept := b.log[:0]
	for _, e := range b.log {
		if !e.Event.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	b.log = kept
}
