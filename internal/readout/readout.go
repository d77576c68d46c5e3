package readout

import (
	"strconv"
	"strings"
	"time"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
)

// Readout is one registry field of the current record.
type Readout struct {
	Description
	// Value is a string, float64, bool or nil. Dates are formatted as YYYY-MM-DD.
	Value any `json:"value"`
	// Present reports whether the key exists in the record, possibly as null
	Present bool `json:"present"`
	// Available is false when the key is absent or the last cycle failed
	Available bool `json:"available"`
}

// Build returns a readout for every enabled field, in the order given.
func Build(snap *status.Snapshot, fields []string) []Readout {
	out := make([]Readout, 0, len(fields))
	healthy := lastCycleSucceeded(snap)
	for _, key := range fields {
		r := Readout{Description: Describe(key)}
		var v record.FactValue
		var ok bool
		if snap != nil {
			v, ok = snap.Record.Get(key)
		}
		if ok {
			r.Value = nativeValue(r.Kind, v)
			r.Present = true
			r.Available = healthy
		}
		out = append(out, r)
	}
	return out
}

// Present returns only the readouts whose key exists in the record.
func Present(readouts []Readout) []Readout {
	out := make([]Readout, 0, len(readouts))
	for _, r := range readouts {
		if r.Present {
			out = append(out, r)
		}
	}
	return out
}

func lastCycleSucceeded(snap *status.Snapshot) bool {
	return snap.Phase() == status.PhaseComplete
}

func nativeValue(kind Kind, v record.FactValue) any {
	switch v.Kind {
	case record.KindNull:
		return nil
	case record.KindDate:
		return v.Date.Format(time.DateOnly)
	case record.KindNumber:
		return v.Number
	case record.KindBool:
		return v.Bool
	}

	s := v.String
	switch kind {
	case KindDate:
		if d, ok := ParseDate(s); ok {
			return d.Format(time.DateOnly)
		}
	case KindMeasurement, KindMonetary:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return s
}

// ParseDate accepts the registry's ISO timestamps and compact YYYYMMDD dates.
func ParseDate(s string) (time.Time, bool) {
	if t, ok := record.ParseTimestamp(s); ok {
		return t, true
	}
	if len(s) == 8 {
		if t, err := time.Parse("20060102", s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
