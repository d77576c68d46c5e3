package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/state"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/writer"
)

// FileFactory persists status snapshots on the local filesystem and keeps no history.
type FileFactory struct {
	statusDir         string
	statusPersistence status.StatusPersistence
	unlock            func() error
}

var _ Factory = (*FileFactory)(nil)

// NewFileFactory creates a file-based storage factory and takes the
// exclusive lock on the configured plate's status directory. With
// status.disabled set no lock is taken and nothing is written.
func NewFileFactory(cfg *config.Config) (*FileFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	id, err := cfg.Plate()
	if err != nil {
		return nil, fmt.Errorf("invalid license plate: %w", err)
	}

	dir := cfg.Status.Dir
	if dir == "" {
		dir = status.DefaultDir()
	}

	if cfg.Status.Disabled {
		slog.Info("Status persistence disabled", "plate", id)
		return &FileFactory{statusDir: dir}, nil
	}

	unlock, err := status.Lock(dir, id)
	if err != nil {
		return nil, err
	}

	slog.Info("Creating file-based storage factory", "status_dir", dir, "plate", id)

	return &FileFactory{
		statusDir:         dir,
		statusPersistence: status.NewFileStatusPersistence(dir),
		unlock:            unlock,
	}, nil
}

// StatusDir returns the base directory of the status files
func (f *FileFactory) StatusDir() string {
	return f.statusDir
}

// CreateStateService creates a state service that persists every commit.
// The coordinator starts empty; the status file is never read back.
func (f *FileFactory) CreateStateService(_ context.Context, id plate.Identifier) (state.StateService, error) {
	slog.Debug("Creating file-backed state service", "plate", id)
	return state.NewStateService(status.Empty(id), f.statusPersistence), nil
}

// CreateHistoryWriter returns nil; file storage keeps no history.
func (*FileFactory) CreateHistoryWriter(_ context.Context) (writer.HistoryWriter, error) {
	return nil, nil
}

// Cleanup releases the status directory lock
func (f *FileFactory) Cleanup() {
	if f.unlock == nil {
		return
	}
	if err := f.unlock(); err != nil {
		slog.Warn("Failed to release status lock", "dir", f.statusDir, "error", err)
	}
	f.unlock = nil
}
