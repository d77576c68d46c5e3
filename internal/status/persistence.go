// Package status provides the coordinator snapshot and its on-disk persistence.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"

	// LockFileName guards a plate directory against a second process
	LockFileName = ".lock"

	// AppDirName is the directory created under the XDG state home
	AppDirName = "rdw-vehicle-watch"
)

// ErrLocked is returned by Lock when another process owns the plate directory.
var ErrLocked = errors.New("status directory is locked by another process")

// DefaultDir returns $XDG_STATE_HOME/rdw-vehicle-watch.
func DefaultDir() string {
	return filepath.Join(xdg.StateHome, AppDirName)
}

// StatusPersistence defines the interface for snapshot persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus writes the snapshot for its plate
	SaveStatus(ctx context.Context, snapshot *Snapshot) error

	// LoadStatus reads the snapshot for id.
	// Returns Empty(id) if nothing was saved yet.
	LoadStatus(ctx context.Context, id plate.Identifier) (*Snapshot, error)

	// LoadAllStatus loads the snapshots of every plate under the base directory
	LoadAllStatus(ctx context.Context) (map[plate.Identifier]*Snapshot, error)
}

// fileStatusPersistence implements StatusPersistence using local filesystem
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence.
// basePath is the base directory where per-plate status files are stored;
// empty means DefaultDir.
func NewFileStatusPersistence(basePath string) StatusPersistence {
	if basePath == "" {
		basePath = DefaultDir()
	}
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

// SaveStatus saves the snapshot to a JSON file in a plate-specific directory
func (f *fileStatusPersistence) SaveStatus(_ context.Context, snapshot *Snapshot) error {
	if snapshot == nil || snapshot.Plate == "" {
		return fmt.Errorf("snapshot without plate cannot be saved")
	}
	id := snapshot.Plate

	plateDir := filepath.Join(f.basePath, id.String())
	if err := os.MkdirAll(plateDir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for '%s': %w", id, err)
	}

	filePath := filepath.Join(plateDir, StatusFileName)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status data for '%s': %w", id, err)
	}

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for '%s': %w", id, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for '%s': %w", id, err)
	}

	return nil
}

// LoadStatus loads the snapshot from a JSON file for a specific plate
func (f *fileStatusPersistence) LoadStatus(_ context.Context, id plate.Identifier) (*Snapshot, error) {
	filePath := filepath.Join(f.basePath, id.String(), StatusFileName)

	// #nosec G304 -- filePath is basePath plus a validated identifier
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(id), nil
		}
		return nil, fmt.Errorf("failed to read status file for '%s': %w", id, err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for '%s': %w", id, err)
	}
	if snapshot.Plate == "" {
		snapshot.Plate = id
	}

	return &snapshot, nil
}

// LoadAllStatus loads snapshots for all plates. Unreadable entries are skipped.
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[plate.Identifier]*Snapshot, error) {
	result := make(map[plate.Identifier]*Snapshot)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := plate.Parse(entry.Name())
		if err != nil {
			continue
		}
		if _, err := os.Stat(filepath.Join(f.basePath, entry.Name(), StatusFileName)); err != nil {
			continue
		}
		snapshot, err := f.LoadStatus(ctx, id)
		if err != nil {
			continue
		}
		result[id] = snapshot
	}

	return result, nil
}

// Lock takes an exclusive, non-blocking file lock on the plate directory under
// basePath (DefaultDir when empty). The returned function releases it.
func Lock(basePath string, id plate.Identifier) (func() error, error) {
	if basePath == "" {
		basePath = DefaultDir()
	}
	plateDir := filepath.Join(basePath, id.String())
	if err := os.MkdirAll(plateDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create status directory for '%s': %w", id, err)
	}

	lock := flock.New(filepath.Join(plateDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock status directory for '%s': %w", id, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, plateDir)
	}
	return lock.Unlock, nil
}
