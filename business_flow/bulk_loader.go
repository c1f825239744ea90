package businessflow

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/workforce-ledger/config"
	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/utils"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const integritySavepoint = "integrity_guard"

// guardedTables are the append-only logs whose triggers are suspended during a load
var guardedTables = []string{
	models.RawCallLog{}.TableName(),
	models.UpdatedCallLog{}.TableName(),
}

// ReleaseFunc ends a suspension. failed reports that a write inside the suspension errored,
// leaving the transaction unusable for anything but a rollback.
type ReleaseFunc func(failed bool) error

func noRelease(bool) error { return nil }

// IntegrityGuard suspends integrity checks on the call log tables inside a transaction.
// The returned release func must run on every exit path; calls after the first are no-ops.
type IntegrityGuard interface {
	Suspend(tx *gorm.DB) (release ReleaseFunc, err error)
	// Restore re-enables checks outside any transaction, used after a rollback
	Restore(db *gorm.DB) error
}

// NewIntegrityGuard picks the guard for the connection's dialect
func NewIntegrityGuard(dialect string, enabled bool, logger zerolog.Logger) IntegrityGuard {
	if !enabled {
		return noopGuard{}
	}
	switch dialect {
	case "postgres":
		return &postgresGuard{logger: logger}
	case "sqlite":
		return sqliteGuard{}
	default:
		return noopGuard{}
	}
}

type noopGuard struct{}

func (noopGuard) Suspend(*gorm.DB) (ReleaseFunc, error) { return noRelease, nil }
func (noopGuard) Restore(*gorm.DB) error                 { return nil }

// sqliteGuard defers foreign key checks to commit; the pragma resets itself when the transaction ends
type sqliteGuard struct{}

func (sqliteGuard) Suspend(tx *gorm.DB) (ReleaseFunc, error) {
	if err := tx.Exec("PRAGMA defer_foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to defer foreign keys: %w", err)
	}
	return noRelease, nil
}

func (sqliteGuard) Restore(*gorm.DB) error { return nil }

type postgresGuard struct {
	logger zerolog.Logger
}

// Suspend disables all triggers on the call log tables. Without the privilege to do so the
// load continues with triggers active. After a failed write the release rolls back to the
// savepoint, which undoes the suspension without running DDL on an aborted transaction.
func (g *postgresGuard) Suspend(tx *gorm.DB) (ReleaseFunc, error) {
	if err := tx.SavePoint(integritySavepoint).Error; err != nil {
		return nil, fmt.Errorf("failed to create savepoint: %w", err)
	}
	for _, table := range guardedTables {
		if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s DISABLE TRIGGER ALL", pq.QuoteIdentifier(table))).Error; err != nil {
			if rbErr := tx.RollbackTo(integritySavepoint).Error; rbErr != nil {
				return nil, fmt.Errorf("failed to roll back trigger suspension: %w", errors.Join(err, rbErr))
			}
			g.logger.Warn().Err(err).Str("table", table).Msg("trigger suspension refused, loading with triggers enabled")
			return noRelease, nil
		}
	}

	released := false
	return func(failed bool) error {
		if released {
			return nil
		}
		released = true
		if failed {
			if err := tx.RollbackTo(integritySavepoint).Error; err != nil {
				return fmt.Errorf("failed to roll back to %s: %w", integritySavepoint, err)
			}
			return nil
		}
		return enableTriggers(tx)
	}, nil
}

func (g *postgresGuard) Restore(db *gorm.DB) error {
	return enableTriggers(db)
}

func enableTriggers(db *gorm.DB) error {
	var errs []error
	for _, table := range guardedTables {
		if err := db.Exec(fmt.Sprintf("ALTER TABLE %s ENABLE TRIGGER ALL", pq.QuoteIdentifier(table))).Error; err != nil {
			errs = append(errs, fmt.Errorf("failed to enable triggers on %s: %w", table, err))
		}
	}
	return errors.Join(errs...)
}

// RowWriter appends prepared rows to the call log tables within a transaction
type RowWriter interface {
	WriteRaw(tx *gorm.DB, rows []*models.RawCallLog) error
	WriteUpdated(tx *gorm.DB, rows []*models.UpdatedCallLog) error
}

// NewRowWriter returns the COPY writer on postgres and batched inserts elsewhere
func NewRowWriter(dialect string, useCopy bool, batchSize int) RowWriter {
	if dialect == "postgres" && useCopy {
		return CopyWriter{}
	}
	return BatchWriter{BatchSize: batchSize}
}

// BatchWriter inserts rows with multi-row INSERT statements
type BatchWriter struct {
	BatchSize int
}

func (w BatchWriter) size() int {
	if w.BatchSize <= 0 {
		return utils.InsertBatchSize
	}
	return w.BatchSize
}

func (w BatchWriter) WriteRaw(tx *gorm.DB, rows []*models.RawCallLog) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, w.size()).Error
}

func (w BatchWriter) WriteUpdated(tx *gorm.DB, rows []*models.UpdatedCallLog) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, w.size()).Error
}

// CopyWriter streams rows through COPY FROM STDIN
type CopyWriter struct{}

func (CopyWriter) WriteRaw(tx *gorm.DB, rows []*models.RawCallLog) error {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.CopyValues()
	}
	return copyRows(tx, models.RawCallLog{}.TableName(), models.RawCallLogColumns, values)
}

func (CopyWriter) WriteUpdated(tx *gorm.DB, rows []*models.UpdatedCallLog) error {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.CopyValues()
	}
	return copyRows(tx, models.UpdatedCallLog{}.TableName(), models.UpdatedCallLogColumns, values)
}

func copyRows(tx *gorm.DB, table string, columns []string, rows [][]any) (err error) {
	if len(rows) == 0 {
		return nil
	}
	sqlTx, ok := tx.Statement.ConnPool.(*sql.Tx)
	if !ok {
		return errors.New("copy requires an open transaction")
	}

	stmt, err := sqlTx.Prepare(pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("failed to prepare copy into %s: %w", table, err)
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close copy into %s: %w", table, cerr)
		}
	}()

	for _, values := range rows {
		if _, err = stmt.Exec(values...); err != nil {
			return fmt.Errorf("failed to copy row into %s: %w", table, err)
		}
	}
	if _, err = stmt.Exec(); err != nil {
		return fmt.Errorf("failed to flush copy into %s: %w", table, err)
	}
	return nil
}

// LoadStats counts rows written by one load
type LoadStats struct {
	RawRows     int
	UpdatedRows int
}

// BulkLoader writes one upload's raw and reconciled rows inside the caller's transaction
type BulkLoader struct {
	writer RowWriter
	guard  IntegrityGuard
	logger zerolog.Logger
}

func NewBulkLoader(writer RowWriter, guard IntegrityGuard, logger zerolog.Logger) *BulkLoader {
	if guard == nil {
		guard = noopGuard{}
	}
	return &BulkLoader{
		writer: writer,
		guard:  guard,
		logger: logger.With().Str("component", "bulk_loader").Logger(),
	}
}

// NewBulkLoaderForDB configures the writer and guard for the connection's dialect
func NewBulkLoaderForDB(db *gorm.DB, cfg config.IngestionConfig, logger zerolog.Logger) *BulkLoader {
	dialect := dialectName(db)
	return NewBulkLoader(
		NewRowWriter(dialect, cfg.UseCopy, cfg.InsertBatchSize),
		NewIntegrityGuard(dialect, cfg.SuspendTriggers, logger),
		logger,
	)
}

// Load appends both row sets. Integrity checks are suspended for the duration and released
// before returning: re-enabled on success, rolled back to the savepoint on a failed write.
// Any error means the caller must roll back.
func (l *BulkLoader) Load(tx *gorm.DB, raw []*models.RawCallLog, updated []*models.UpdatedCallLog) (stats LoadStats, err error) {
	if len(raw) != len(updated) {
		return stats, fmt.Errorf("%w: %d raw rows but %d reconciled rows", ErrBulkWrite, len(raw), len(updated))
	}

	release, err := l.guard.Suspend(tx)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrBulkWrite, err)
	}
	defer func() {
		if rerr := release(err != nil); rerr != nil {
			l.logger.Error().Err(rerr).Bool("write_failed", err != nil).Msg("failed to release integrity suspension")
			if err == nil {
				err = fmt.Errorf("%w: %v", ErrBulkWrite, rerr)
			}
		}
	}()

	if err = l.writer.WriteRaw(tx, raw); err != nil {
		return stats, fmt.Errorf("%w: raw call logs: %v", ErrBulkWrite, err)
	}
	stats.RawRows = len(raw)

	if err = l.writer.WriteUpdated(tx, updated); err != nil {
		return stats, fmt.Errorf("%w: updated call logs: %v", ErrBulkWrite, err)
	}
	stats.UpdatedRows = len(updated)

	l.logger.Debug().Int("raw_rows", stats.RawRows).Int("updated_rows", stats.UpdatedRows).Msg("bulk load written")
	return stats, nil
}

// Restore re-enables integrity checks outside the failed transaction
func (l *BulkLoader) Restore(db *gorm.DB) {
	if err := l.guard.Restore(db); err != nil {
		l.logger.Warn().Err(err).Msg("integrity restore after rollback failed")
	}
}

// dialectName normalizes gorm dialector names
func dialectName(db *gorm.DB) string {
	return strings.ToLower(db.Dialector.Name())
}
