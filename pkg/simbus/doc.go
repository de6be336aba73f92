// Package simbus provides the in-process event bus that coordinates the
// components of a multi-agent simulation front end: simulated agents, UI
// panels, and background workers publish and subscribe through a shared
// Bus instead of calling each other directly.
//
// The bus offers:
//   - Publish/Subscribe with per-kind registration, per-handler predicates,
//     one-shot subscriptions, and TTL-based staleness checks
//   - A validator chain that rejects malformed events before they are logged
//   - A priority-ordered middleware chain with continuation-passing control;
//     the built-in metrics middleware times every publish
//   - An append-only, capacity-bounded event log with filtered queries,
//     aggregate analytics, and deterministic replay
//   - A timer-driven retry queue with bounded attempts and a periodic
//     durable snapshot for crash recovery
//
// Failure policy is "best effort, never crash the bus": only validation
// failures surface to publishers. Handler errors are isolated per handler
// and recorded on the event's log entry; retry exhaustion and persistence
// failures are observable only through metrics and the log.
//
// A Bus is an explicitly constructed instance with a documented lifecycle:
// construct with New, call Start to recover the retry snapshot and begin
// the retry timer, and Stop to halt it. There is no package-level singleton.
package simbus
