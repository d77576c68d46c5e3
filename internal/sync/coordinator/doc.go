// Package coordinator owns the refresh lifecycle of one license plate.
//
// A Coordinator decides when to refetch, merges the registry facts with the
// stolen status, detects whether the merged record changed and decides whether
// the cycle counts as a success. It sits on top of sync.Manager, which gathers
// both sources concurrently.
//
// # Refresh Cycle
//
//  1. Manager.Gather runs both sources and classifies the registry result
//  2. A cycle is productive when the registry returned facts or the stolen
//     status is known
//  3. Productive: the failure count resets and the success time is updated.
//     The record is replaced and subscribers are notified only when it
//     differs structurally from the last one
//  4. Not productive: the failure count grows, the last record is kept and
//     nobody is notified
//
// There is no retry inside a cycle. The loop in Start schedules the next cycle
// after the configured interval, or sooner with exponential backoff after a
// failure.
//
// # Concurrency
//
// Concurrent Refresh calls join the cycle in flight (singleflight) and receive
// its Result. The state is an immutable status.Snapshot swapped atomically by
// the state.StateService at commit, so Snapshot never blocks. A cycle whose
// context ends before commit is abandoned without touching the state.
//
// # Subscribers
//
// Subscribe returns an id used by Unsubscribe. Subscribers run synchronously
// after commit; a panicking subscriber is recovered and logged.
package coordinator
