package writer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rdwwatch/rdw-vehicle-watch/internal/plate"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/record"
	"github.com/rdwwatch/rdw-vehicle-watch/internal/status"
)

const (
	insertEntrySQL = `INSERT INTO vehicle_record_history (id, identifier, record, is_stolen, recorded_at)
VALUES ($1, $2, $3, $4, $5)`

	latestEntrySQL = `SELECT record, is_stolen FROM vehicle_record_history
WHERE identifier = $1 ORDER BY recorded_at DESC LIMIT 1`

	selectEntriesSQL = `SELECT id, identifier, record, is_stolen, recorded_at FROM vehicle_record_history
WHERE identifier = $1 ORDER BY recorded_at DESC LIMIT $2`
)

// dbHistoryWriter is a HistoryWriter that stores entries in PostgreSQL
type dbHistoryWriter struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewDBHistoryWriter creates a new database-backed HistoryWriter
func NewDBHistoryWriter(pool *pgxpool.Pool) (HistoryWriter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbHistoryWriter{pool: pool, now: time.Now}, nil
}

// Store appends the snapshot's record unless it equals the latest stored entry.
// The read and the insert run in one serializable transaction.
func (d *dbHistoryWriter) Store(ctx context.Context, snapshot *status.Snapshot) error {
	if snapshot == nil || snapshot.Record == nil {
		return fmt.Errorf("snapshot has no record")
	}

	data, err := json.Marshal(snapshot.Record)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	recordedAt := d.now().UTC()
	if snapshot.LastSuccess != nil {
		recordedAt = snapshot.LastSuccess.UTC()
	}

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			slog.Error("Failed to rollback transaction", "error", rollbackErr)
		}
	}()

	// Restarts replay the first cycle; skip it when nothing changed since the last run
	latest, err := latestRecord(ctx, tx, snapshot.Plate)
	if err != nil {
		return err
	}
	if latest != nil && latest.Equal(snapshot.Record) {
		slog.DebugContext(ctx, "Record unchanged since last stored entry", "plate", snapshot.Plate)
		return nil
	}

	if _, err := tx.Exec(ctx, insertEntrySQL,
		uuid.New(),
		snapshot.Plate.String(),
		data,
		snapshot.Record.Stolen.Ptr(),
		recordedAt,
	); err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Stored record history entry",
		"plate", snapshot.Plate, "is_stolen", snapshot.Record.Stolen.String())
	return nil
}

func latestRecord(ctx context.Context, tx pgx.Tx, id plate.Identifier) (*record.MergedRecord, error) {
	var (
		data     []byte
		isStolen *bool
	)
	err := tx.QueryRow(ctx, latestEntrySQL, id.String()).Scan(&data, &isStolen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest history entry: %w", err)
	}
	return decodeRecord(data, isStolen)
}

// History returns the most recent entries for id, newest first
func (d *dbHistoryWriter) History(ctx context.Context, id plate.Identifier, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := d.pool.Query(ctx, selectEntriesSQL, id.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e          Entry
			identifier string
			data       []byte
			isStolen   *bool
		)
		if err := rows.Scan(&e.ID, &identifier, &data, &isStolen, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		rec, err := decodeRecord(data, isStolen)
		if err != nil {
			return nil, err
		}
		e.Plate = plate.Identifier(identifier)
		e.Record = rec
		e.Stolen = rec.Stolen
		e.RecordedAt = e.RecordedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

// Close closes the pool
func (d *dbHistoryWriter) Close() {
	d.pool.Close()
}

// decodeRecord rebuilds a record; the is_stolen column is authoritative over the JSON copy.
func decodeRecord(data []byte, isStolen *bool) (*record.MergedRecord, error) {
	var rec record.MergedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode stored record: %w", err)
	}
	rec.Stolen = record.StolenUnknown
	if isStolen != nil {
		rec.Stolen = record.StolenFromBool(*isStolen)
	}
	return &rec, nil
}
