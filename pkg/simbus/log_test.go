package simbus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swarmlab/simbus/pkg/simbus"
	"github.com/swarmlab/simbus/pkg/simbus/event"
)

func publishAll(t *testing.T, b *simbus.Bus, events ...event.Event) {
	t.Helper()
	for _, evt := range events {
		if _, err := b.Publish(context.Background(), evt); err != nil {
			t.Fatalf("publish %s: %v", evt.ID, err)
		}
	}
}

func TestQueryFilters(t *testing.T) {
	b := simbus.New()
	defer b.Stop()

	b.Subscribe([]event.Kind{event.SystemAlert}, func(_ context.Context, _ event.Event) error {
		return errors.New("alert handler down")
	})

	base := time.Now().Add(-time.Hour)
	publishAll(t, b,
		event.New(event.AgentMessage, "alice", nil,
			event.WithTarget("bob"), event.WithCreatedAt(base), event.WithTags("chat")),
		event.New(event.AgentMessage, "bob", nil,
			event.WithCreatedAt(base.Add(10*time.Minute))),
		event.New(event.SystemAlert, "monitor", "cpu",
			event.WithCreatedAt(base.Add(20*time.Minute)), event.WithTags("ops", "alarm")),
	)

	tests := []struct {
		name   string
		filter simbus.Filter
		want   int
	}{
		{"all", simbus.Filter{}, 3},
		{"by kind", simbus.Filter{Kinds: []event.Kind{event.AgentMessage}}, 2},
		{"by source", simbus.Filter{SourceID: "alice"}, 1},
		{"by target", simbus.Filter{TargetID: "bob"}, 1},
		{"since", simbus.Filter{Since: base.Add(5 * time.Minute)}, 2},
		{"until", simbus.Filter{Until: base.Add(5 * time.Minute)}, 1},
		{"window", simbus.Filter{Since: base.Add(5 * time.Minute), Until: base.Add(15 * time.Minute)}, 1},
		{"failed only", simbus.Filter{FailedOnly: true}, 1},
		{"tag intersection", simbus.Filter{Tags: []string{"alarm", "chat"}}, 2},
		{"no tag match", simbus.Filter{Tags: []string{"nope"}}, 0},
		{"combined", simbus.Filter{Kinds: []event.Kind{event.AgentMessage}, SourceID: "bob"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(b.Query(tt.filter)); got != tt.want {
				t.Errorf("expected %d entries, got %d", tt.want, got)
			}
		})
	}
}

func TestQueryReturnsCopies(t *testing.T) {
	b := simbus.New()
	defer b.Stop()

	publishAll(t, b, event.New(event.AgentMessage, "a", nil, event.WithTags("original")))

	got := b.Query(simbus.Filter{})
	got[0].Event.Tags[0] = "mutated"
	got[0].DeliveryErrors = append(got[0].DeliveryErrors, "fake")

	again := b.Query(simbus.Filter{})
	if again[0].Event.Tags[0] != "original" {
		t.Error("query result mutation leaked into the log")
	}
	if len(again[0].DeliveryErrors) != 0 {
		t.Error("delivery errors mutated through a query result")
	}
}

func TestLogCapacityEviction(t *testing.T) {
	b := simbus.New(simbus.WithLogCapacity(3))
	defer b.Stop()

	var ids []string
	for i := 0; i < 5; i++ {
		evt := event.New(event.AgentMessage, "a", i)
		ids = append(ids, evt.ID)
		publishAll(t, b, evt)
	}

	entries := b.Log()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// The oldest two were evicted.
	for i, e := range entries {
		if e.Event.ID != ids[i+2] {
			t.Errorf("entry %d: expected %s, got %s", i, ids[i+2], e.Event.ID)
		}
	}
}

func TestClearLog(t *testing.T) {
	b := simbus.New()
	defer b.Stop()

	publishAll(t, b,
		event.New(event.AgentMessage, "a", nil,
			event.WithCreatedAt(time.Now().Add(-time.Hour))),
		event.New(event.AgentMessage, "a", nil),
	)

	// Clear only old entries.
	b.ClearLog(time.Minute)
	if got := len(b.Log()); got != 1 {
		t.Fatalf("expected 1 entry after partial clear, got %d", got)
	}

	// Zero clears everything.
	b.ClearLog(0)
	if got := len(b.Log()); got != 0 {
		t.Fatalf("expected empty log, got %d", got)
	}
}
