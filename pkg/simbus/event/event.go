// Package event defines the immutable event record carried on the bus.
//
// Events are value types: the bus copies them on ingest and hands copies
// to handlers, so an Event can never be mutated behind a subscriber's back.
// The set of kinds is closed; anything outside it is rejected by the bus's
// built-in validator.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the category of an event. The enumeration is closed:
// registries and dispatch tables key on Kind, and the bus rejects events
// whose kind is not one of the constants below.
type Kind string

// The full set of event kinds exchanged between simulation components.
const (
	AgentMessage     Kind = "AGENT_MESSAGE"
	AgentStateUpdate Kind = "AGENT_STATE_UPDATE"
	AgentSpawned     Kind = "AGENT_SPAWNED"
	AgentTerminated  Kind = "AGENT_TERMINATED"
	TaskAssigned     Kind = "TASK_ASSIGNED"
	TaskCompleted    Kind = "TASK_COMPLETED"
	SystemAlert      Kind = "SYSTEM_ALERT"
	SimulationTick   Kind = "SIMULATION_TICK"
)

// Kinds returns every valid event kind.
func Kinds() []Kind {
	return []Kind{
		AgentMessage,
		AgentStateUpdate,
		AgentSpawned,
		AgentTerminated,
		TaskAssigned,
		TaskCompleted,
		SystemAlert,
		SimulationTick,
	}
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case AgentMessage, AgentStateUpdate, AgentSpawned, AgentTerminated,
		TaskAssigned, TaskCompleted, SystemAlert, SimulationTick:
		return true
	}
	return false
}

// Priority is advisory metadata carried on an event. Dispatch order does
// not depend on it.
type Priority string

// Advisory priority levels.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Event is a single message on the bus. ID, Kind, CreatedAt, and SourceID
// are always present on events built with New; the bus rejects events
// missing any of them.
type Event struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	CreatedAt time.Time     `json:"created_at"`
	SourceID  string        `json:"source_id"`
	TargetID  string        `json:"target_id,omitempty"` // empty means broadcast
	Payload   any           `json:"payload,omitempty"`
	Priority  Priority      `json:"priority,omitempty"`
	TTL       time.Duration `json:"ttl,omitempty"` // 0 means no expiry
	Tags      []string      `json:"tags,omitempty"`
}

// Option configures event creation.
type Option func(*Event)

// WithID sets a specific event ID (default: auto-generated UUID).
func WithID(id string) Option {
	return func(e *Event) { e.ID = id }
}

// WithTarget addresses the event to a single recipient instead of
// broadcasting it.
func WithTarget(targetID string) Option {
	return func(e *Event) { e.TargetID = targetID }
}

// WithPriority sets the advisory priority.
func WithPriority(p Priority) Option {
	return func(e *Event) { e.Priority = p }
}

// WithTTL sets the staleness window. Handlers checked at or after
// CreatedAt+ttl will not see the event.
func WithTTL(ttl time.Duration) Option {
	return func(e *Event) { e.TTL = ttl }
}

// WithTags attaches correlation tags.
func WithTags(tags ...string) Option {
	return func(e *Event) { e.Tags = append(e.Tags, tags...) }
}

// WithCreatedAt sets a specific creation time (default: time.Now()).
func WithCreatedAt(t time.Time) Option {
	return func(e *Event) { e.CreatedAt = t }
}

// New creates an event with the given kind, source, and payload.
func New(kind Kind, sourceID string, payload any, opts ...Option) Event {
	e := Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		CreatedAt: time.Now(),
		SourceID:  sourceID,
		Payload:   payload,
		Priority:  PriorityNormal,
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Clone returns a copy of the event with its own tag slice.
func (e Event) Clone() Event {
	c := e
	if len(e.Tags) > 0 {
		c.Tags = make([]string, len(e.Tags))
		copy(c.Tags, e.Tags)
	}
	return c
}

// Broadcast reports whether the event has no specific target.
func (e Event) Broadcast() bool {
	return e.TargetID == ""
}

// HasTag reports whether the event carries the given tag.
func (e Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Expired reports whether the event is stale at the given instant.
// An event with TTL=T is live strictly before CreatedAt+T and stale
// from that instant on. TTL=0 never expires.
func (e Event) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return !now.Before(e.CreatedAt.Add(e.TTL))
}
