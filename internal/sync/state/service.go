// Package state holds the snapshot a coordinator publishes after each cycle.
package state

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
)

// StateService publishes coordinator snapshots. Snapshot is lock-free and may be
// called from any goroutine; Commit is only called by the owning coordinator.
//
//nolint:revive // This name is fine
//go:generate mockgen -destination=mocks/mock_state_service.go -package=mocks -source=service.go StateService
type StateService interface {
	// Snapshot returns the current snapshot. It is never nil.
	Snapshot() *status.Snapshot

	// Commit replaces the current snapshot and hands it to persistence, if any.
	// Persistence failures are logged and do not undo the swap.
	Commit(ctx context.Context, snapshot *status.Snapshot)
}

type snapshotStateService struct {
	current     atomic.Pointer[status.Snapshot]
	persistence status.StatusPersistence
}

// NewStateService creates a state service starting from initial.
// persistence may be nil to keep snapshots in memory only.
func NewStateService(initial *status.Snapshot, persistence status.StatusPersistence) StateService {
	s := &snapshotStateService{persistence: persistence}
	s.current.Store(initial)
	return s
}

func (s *snapshotStateService) Snapshot() *status.Snapshot {
	return s.current.Load()
}

func (s *snapshotStateService) Commit(ctx context.Context, snapshot *status.Snapshot) {
	if snapshot == nil {
		return
	}
	s.current.Store(snapshot)

	if s.persistence == nil {
		return
	}
	if err := s.persistence.SaveStatus(ctx, snapshot); err != nil {
		slog.Warn("Failed to persist status snapshot",
			"plate", snapshot.Plate.String(),
			"error", err)
	}
}
