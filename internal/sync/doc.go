// Package sync contains the building blocks of a refresh cycle for one
// license plate.
//
// # Core Interfaces
//
//   - Manager: gathers both sources concurrently and classifies the result
//   - DataChangeDetector: decides whether the merged record changed
//
// # Cycle Outcome
//
// Manager.Gather runs the RegistrySource and the StolenCheckSource in an
// errgroup. Neither goroutine reports an error, so a failing source never
// cancels the other one; each stays bounded by its own per-call timeout.
// The joined CycleOutcome carries:
//
//   - RegistryResult: RegistrySuccess (facts), RegistryEmpty (NoDataFound) or
//     RegistryFailed with the failure kind
//   - the tri-state stolen status
//
// CycleOutcome.Productive is the success rule: facts were returned or the
// stolen status is known. CycleOutcome.Merge only includes facts from a
// successful registry call.
//
// # Scheduling
//
// RefreshScheduler paces the loop: the configured interval after a success,
// exponential backoff (cenkalti/backoff) capped at the interval after
// failures.
//
// The coordinator subpackage owns state, change detection and publication.
// The state subpackage holds the published snapshot. The writer subpackage
// records notified changes in Postgres.
package sync
