package readout

import (
	"time"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
)

// Diagnostic keys
const (
	DiagLastUpdateStatus  = "last_update_status"
	DiagLastUpdateTime    = "last_update_time"
	DiagConsecutiveErrors = "consecutive_errors"
)

// Last update status values
const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// Manufacturer is reported in the device information.
const Manufacturer = "RDW (Dutch Road Authority)"

// Diagnostic is a readout about the watcher itself rather than the vehicle.
// Diagnostics are always available.
type Diagnostic struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Diagnostics returns the last update status, the last success time and the
// number of consecutive failed cycles.
func Diagnostics(snap *status.Snapshot) []Diagnostic {
	updateStatus := StatusOK
	if snap.Phase() == status.PhaseFailed {
		updateStatus = StatusError
	}

	var lastSuccess any
	var failures int
	if snap != nil {
		if snap.LastSuccess != nil {
			lastSuccess = snap.LastSuccess.UTC().Format(time.RFC3339)
		}
		failures = snap.ConsecutiveFailures
	}

	return []Diagnostic{
		{Key: DiagLastUpdateStatus, Name: "Last Update Status", Value: updateStatus},
		{Key: DiagLastUpdateTime, Name: "Last Update Time", Value: lastSuccess},
		{Key: DiagConsecutiveErrors, Name: "Consecutive Update Errors", Value: failures},
	}
}

// Device describes the watched vehicle.
type Device struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	SWVersion    string `json:"swVersion,omitempty"`
}

// DeviceInfo builds the device description from the record, falling back to
// "Unknown" when the brand is not known yet.
func DeviceInfo(id plate.Identifier, rec *record.MergedRecord) Device {
	brand := "Unknown"
	if v, ok := rec.Get("merk"); ok && !v.IsNull() {
		brand = v.Display()
	}
	model := brand
	if v, ok := rec.Get("handelsbenaming"); ok && !v.IsNull() {
		model += " " + v.Display()
	}
	d := Device{
		Name:         "RDW Vehicle " + id.String(),
		Manufacturer: Manufacturer,
		Model:        model,
	}
	if v, ok := rec.Get("typegoedkeuringsnummer"); ok && !v.IsNull() {
		d.SWVersion = v.Display()
	}
	return d
}

// Document is the full diagnostics dump for one watched plate.
type Document struct {
	Plate               plate.Identifier     `json:"plate"`
	Device              Device               `json:"device"`
	EnabledFields       []string             `json:"enabledFields"`
	UpdateInterval      float64              `json:"updateIntervalSeconds"`
	LastUpdateSuccess   bool                 `json:"lastUpdateSuccess"`
	LastUpdateTimestamp *time.Time           `json:"lastUpdateTimestamp"`
	ConsecutiveErrors   int                  `json:"consecutiveErrors"`
	Phase               status.Phase         `json:"phase"`
	Stale               bool                 `json:"stale"`
	RegistryOutcome     string               `json:"registryOutcome,omitempty"`
	StolenStatus        record.StolenStatus  `json:"stolenStatus"`
	Data                *record.MergedRecord `json:"data"`
	Diagnostics         []Diagnostic         `json:"diagnostics"`
}

// NewDocument assembles the diagnostics document.
func NewDocument(id plate.Identifier, snap *status.Snapshot, interval time.Duration, fields []string) Document {
	doc := Document{
		Plate:          id,
		EnabledFields:  append([]string(nil), fields...),
		UpdateInterval: interval.Seconds(),
		Phase:          snap.Phase(),
		Stale:          snap.Stale(),
		Diagnostics:    Diagnostics(snap),
	}
	if snap != nil {
		doc.LastUpdateSuccess = snap.LastAttempt != nil && !snap.LastCycleFailed
		doc.LastUpdateTimestamp = snap.LastSuccess
		doc.ConsecutiveErrors = snap.ConsecutiveFailures
		doc.RegistryOutcome = snap.RegistryOutcome
		doc.StolenStatus = snap.StolenStatus
		doc.Data = snap.Record
	}
	doc.Device = DeviceInfo(id, doc.Data)
	return doc
}
