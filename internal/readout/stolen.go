package readout

import (
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
)

// StolenFlagName is the display name of the stolen flag.
const StolenFlagName = "Stolen Status"

// StolenFlag is the stolen status as an on/off flag.
type StolenFlag struct {
	Name string `json:"name"`
	// Value is nil when the status is unknown or there is no record
	Value *bool `json:"value"`
	// Available follows the last cycle, not the stolen check itself
	Available bool `json:"available"`
}

// Stolen derives the stolen flag from the snapshot's record.
func Stolen(snap *status.Snapshot) StolenFlag {
	flag := StolenFlag{Name: StolenFlagName, Available: lastCycleSucceeded(snap)}
	if snap.HasRecord() {
		flag.Value = snap.Record.Stolen.Ptr()
	}
	return flag
}

// State renders the flag as "on", "off" or "unknown".
func (f StolenFlag) State() string {
	switch {
	case f.Value == nil:
		return record.StolenUnknown.String()
	case *f.Value:
		return "on"
	default:
		return "off"
	}
}
