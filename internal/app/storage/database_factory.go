package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/config"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/db"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/sync/writer"
)

// DatabaseFactory adds a Postgres change history to file-based status persistence.
type DatabaseFactory struct {
	*FileFactory
	pool *pgxpool.Pool
}

var _ Factory = (*DatabaseFactory)(nil)

// NewDatabaseFactory connects to the configured database and takes the status lock.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config) (*DatabaseFactory, error) {
	if cfg == nil || cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	files, err := NewFileFactory(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		files.Cleanup()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	slog.Info("Creating database-backed storage factory", "host", cfg.Database.Host, "database", cfg.Database.Database)
	return newDatabaseFactory(files, pool), nil
}

func newDatabaseFactory(files *FileFactory, pool *pgxpool.Pool) *DatabaseFactory {
	return &DatabaseFactory{FileFactory: files, pool: pool}
}

// CreateHistoryWriter creates the Postgres history writer
func (d *DatabaseFactory) CreateHistoryWriter(_ context.Context) (writer.HistoryWriter, error) {
	slog.Debug("Creating database history writer")
	return writer.NewDBHistoryWriter(d.pool)
}

// Cleanup closes the connection pool and releases the status lock
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		d.pool.Close()
		d.pool = nil
	}
	d.FileFactory.Cleanup()
}
