package simbus

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReplayTag marks events re-published by Replay.
const ReplayTag = "replayed"

// Replay re-publishes each entry's underlying event through the normal
// publish pipeline, tagged with ReplayTag. Replayed copies get a fresh ID
// and creation time; the input entries are never mutated and only their
// iteration order is preserved.
func (b *Bus) Replay(ctx context.Context, entries []LogEntry) error {
	var errs []error
	for i := range entries {
		evt := entries[i].Event.Clone()
		evt.ID = uuid.New().String()
		evt.CreatedAt = time.Now()
		if !evt.HasTag(ReplayTag) {
			evt.Tags = append(evt.Tags, ReplayTag)
		}
		if _, err := b.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
