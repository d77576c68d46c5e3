package api

import (
	"time"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/readout"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/writer"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status string       `json:"status"`
	Phase  status.Phase `json:"phase"`
}

// VehicleResponse is the current merged record
type VehicleResponse struct {
	Plate       plate.Identifier     `json:"plate"`
	Record      *record.MergedRecord `json:"record"`
	Stale       bool                 `json:"stale"`
	LastSuccess *time.Time           `json:"lastSuccess,omitempty"`
}

// ReadoutsResponse lists the enabled readouts
type ReadoutsResponse struct {
	Plate    plate.Identifier   `json:"plate"`
	Device   readout.Device     `json:"device"`
	Readouts []readout.Readout  `json:"readouts"`
	Stolen   readout.StolenFlag `json:"stolen"`
}

// StolenResponse is the stolen flag
type StolenResponse struct {
	Plate plate.Identifier `json:"plate"`
	readout.StolenFlag
	State string `json:"state"`
}

// RefreshResponse describes a manually triggered cycle
type RefreshResponse struct {
	Success  bool                 `json:"success"`
	Changed  bool                 `json:"changed"`
	Reason   string               `json:"reason"`
	Trigger  string               `json:"trigger"`
	Shared   bool                 `json:"shared"`
	Registry string               `json:"registry,omitempty"`
	Stolen   *record.StolenStatus `json:"stolen,omitempty"`
	Snapshot *status.Snapshot     `json:"snapshot"`
}

// HistoryResponse lists stored record versions, newest first
type HistoryResponse struct {
	Plate   plate.Identifier `json:"plate"`
	Entries []writer.Entry   `json:"entries"`
}
