package app

import (
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/coordinator"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/writer"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Coordinator owns the refresh cycle of the watched plate
	Coordinator coordinator.Coordinator

	// History is the change history writer (optional)
	History writer.HistoryWriter
}
