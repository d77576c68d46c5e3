// Package storage creates the storage-dependent components as one family:
// the state service with its status persistence and the optional change history.
package storage

import (
	"context"
	"fmt"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/state"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/writer"
)

//go:generate mockgen -destination=mocks/mock_factory.go -package=mocks -source=factory.go Factory

// Factory creates storage-dependent components and owns their resources.
type Factory interface {
	// CreateStateService creates the state service for id. Committed
	// snapshots are persisted to the status directory.
	CreateStateService(ctx context.Context, id plate.Identifier) (state.StateService, error)

	// CreateHistoryWriter creates the change history writer.
	// Returns nil without error when no history store is configured.
	CreateHistoryWriter(ctx context.Context) (writer.HistoryWriter, error)

	// Cleanup releases the status lock and any database connections.
	Cleanup()
}

// NewStorageFactory returns a DatabaseFactory when a database is configured
// and a FileFactory otherwise.
func NewStorageFactory(ctx context.Context, cfg *config.Config) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Database != nil {
		return NewDatabaseFactory(ctx, cfg)
	}
	return NewFileFactory(cfg)
}
