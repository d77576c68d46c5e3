// Package writer contains the HistoryWriter interface and its Postgres implementation
package writer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
)

//go:generate mockgen -destination=mocks/mock_history_writer.go -package=mocks -source=writer.go HistoryWriter

// DefaultHistoryLimit bounds History when the caller passes a non-positive limit.
const DefaultHistoryLimit = 50

// Entry is one committed record version.
type Entry struct {
	ID         uuid.UUID            `json:"id"`
	Plate      plate.Identifier     `json:"plate"`
	Record     *record.MergedRecord `json:"record"`
	Stolen     record.StolenStatus  `json:"is_stolen"`
	RecordedAt time.Time            `json:"recorded_at"`
}

// HistoryWriter defines the interface needed to persist and read back record changes.
type HistoryWriter interface {
	// Store appends the record of snapshot as a new history entry
	Store(ctx context.Context, snapshot *status.Snapshot) error
	// History returns the most recent entries for id, newest first
	History(ctx context.Context, id plate.Identifier, limit int) ([]Entry, error)
	// Close releases the underlying resources
	Close()
}

// Recorder adapts a HistoryWriter to the coordinator's subscriber contract.
// Store failures are logged; they never affect the refresh cycle.
type Recorder struct {
	w HistoryWriter
}

// NewRecorder returns a Recorder writing to w
func NewRecorder(w HistoryWriter) *Recorder {
	return &Recorder{w: w}
}

// OnRecordChanged stores the committed snapshot
func (r *Recorder) OnRecordChanged(ctx context.Context, snapshot *status.Snapshot) {
	if snapshot == nil || snapshot.Record == nil {
		return
	}
	if err := r.w.Store(ctx, snapshot); err != nil {
		slog.ErrorContext(ctx, "Failed to store record history",
			"plate", snapshot.Plate, "error", err)
	}
}
