package record

import (
	"bytes"
	"fmt"
)

// StolenStatus is the tri-state result of the stolen-vehicle register check.
// The zero value is StolenUnknown.
type StolenStatus int8

const (
	// StolenUnknown means the register could not be consulted.
	StolenUnknown StolenStatus = iota
	// StolenFalse means the register reported no match.
	StolenFalse
	// StolenTrue means the register flagged the vehicle.
	StolenTrue
)

// StolenFromBool converts a definite answer.
func StolenFromBool(b bool) StolenStatus {
	if b {
		return StolenTrue
	}
	return StolenFalse
}

// Known reports whether the status is a definite answer.
func (s StolenStatus) Known() bool {
	return s == StolenTrue || s == StolenFalse
}

// Ptr returns nil for unknown, otherwise a pointer to the definite answer.
func (s StolenStatus) Ptr() *bool {
	if !s.Known() {
		return nil
	}
	b := s == StolenTrue
	return &b
}

func (s StolenStatus) String() string {
	switch s {
	case StolenTrue:
		return "true"
	case StolenFalse:
		return "false"
	default:
		return "unknown"
	}
}

// Value returns the status as a FactValue; unknown maps to an explicit null.
func (s StolenStatus) Value() FactValue {
	if !s.Known() {
		return Null()
	}
	return Bool(s == StolenTrue)
}

// MarshalJSON encodes true, false or null.
func (s StolenStatus) MarshalJSON() ([]byte, error) {
	switch s {
	case StolenTrue:
		return []byte("true"), nil
	case StolenFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes true, false or null.
func (s *StolenStatus) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*s = StolenTrue
	case "false":
		*s = StolenFalse
	case "null":
		*s = StolenUnknown
	default:
		return fmt.Errorf("stolen status: unexpected value %s", data)
	}
	return nil
}
