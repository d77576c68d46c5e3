package status

import (
	"time"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
)

// Phase summarizes the outcome of the most recent refresh cycle
type Phase string

const (
	// PhasePending means no cycle has completed yet
	PhasePending Phase = "Pending"

	// PhaseComplete means the last cycle succeeded
	PhaseComplete Phase = "Complete"

	// PhaseFailed means the last cycle failed
	PhaseFailed Phase = "Failed"
)

// Snapshot is an immutable view of a coordinator's state. A new Snapshot is
// built for every committed cycle; callers must not modify one they received.
type Snapshot struct {
	// Plate is the watched identifier
	Plate plate.Identifier `json:"plate"`

	// Record is the last merged record, nil until a cycle produced one
	Record *record.MergedRecord `json:"record"`

	// LastSuccess is the time of the last successful cycle
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`

	// LastAttempt is the time of the last committed cycle, successful or not
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// ConsecutiveFailures counts failed cycles since the last success
	ConsecutiveFailures int `json:"consecutiveFailures"`

	// LastCycleFailed is true when the most recent cycle failed
	LastCycleFailed bool `json:"lastCycleFailed"`

	// RegistryOutcome is "success" or the failure kind of the last registry call
	RegistryOutcome string `json:"registryOutcome,omitempty"`

	// StolenStatus is the stolen status observed in the last cycle,
	// which may differ from Record.Stolen after a failed cycle
	StolenStatus record.StolenStatus `json:"stolenStatus"`
}

// Empty returns the snapshot of a coordinator that has not run yet.
func Empty(id plate.Identifier) *Snapshot {
	return &Snapshot{Plate: id}
}

// Phase derives the phase from the snapshot fields.
func (s *Snapshot) Phase() Phase {
	switch {
	case s == nil || s.LastAttempt == nil:
		return PhasePending
	case s.LastCycleFailed:
		return PhaseFailed
	default:
		return PhaseComplete
	}
}

// Stale reports whether consumers should treat the record as outdated: the
// last cycle failed, or no cycle has succeeded yet.
func (s *Snapshot) Stale() bool {
	return s == nil || s.LastCycleFailed || s.LastSuccess == nil
}

// HasRecord reports whether a record is available.
func (s *Snapshot) HasRecord() bool {
	return s != nil && s.Record != nil
}
