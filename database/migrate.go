package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
)

// MigrateUp applies all pending migrations. An up-to-date schema is not an error.
func MigrateUp(connString string) error {
	return withMigrator(connString, func(m Migrator) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		return logVersion(m)
	})
}

// MigrateDown rolls back steps migrations, or all of them when steps <= 0.
func MigrateDown(connString string, steps int) error {
	return withMigrator(connString, func(m Migrator) error {
		var err error
		if steps <= 0 {
			err = m.Down()
		} else {
			err = m.Steps(-steps)
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		return logVersion(m)
	})
}

func withMigrator(connString string, fn func(Migrator) error) error {
	m, err := NewFromConnectionString(connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			slog.Warn("Failed to close migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()
	return fn(m)
}

func logVersion(m Migrator) error {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		slog.Info("Database schema is empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	slog.Info("Database schema version", "version", version, "dirty", dirty)
	return nil
}
