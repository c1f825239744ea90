// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IngestionRunRepositoryImpl implements IngestionRunRepository interface
type IngestionRunRepositoryImpl struct {
	*BaseRepository[models.IngestionRun, struct{}]
}

// NewIngestionRunRepository creates a new ingestion run repository
func NewIngestionRunRepository(db *gorm.DB) IngestionRunRepository {
	return &IngestionRunRepositoryImpl{
		BaseRepository: NewBaseRepository[models.IngestionRun, struct{}](db),
	}
}

// ByUUID retrieves an ingestion run by its UUID
func (r *IngestionRunRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.IngestionRun, error) {
	var run models.IngestionRun
	err := r.getDB(ctx).Where("uuid = ?", id).Take(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ingestion run %s: %w", id, err)
	}
	return &run, nil
}

// Finish stores the terminal state and counters of a run
func (r *IngestionRunRepositoryImpl) Finish(ctx context.Context, run *models.IngestionRun) (err error) {
	if run == nil || run.ID == 0 {
		return errors.New("ingestion run ID is required for finish")
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	updates := map[string]any{
		"status":          run.Status,
		"stage":           run.Stage,
		"failed_stage":    run.FailedStage,
		"total_rows":      run.TotalRows,
		"skipped_rows":    run.SkippedRows,
		"part_timer_rows": run.PartTimerRows,
		"min_log_time":    run.MinLogTime,
		"max_log_time":    run.MaxLogTime,
		"error_message":   run.ErrorMessage,
		"finished_at":     run.FinishedAt,
	}
	if err = db.Model(&models.IngestionRun{}).Where("id = ?", run.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to finish ingestion run %d: %w", run.ID, err)
	}
	return nil
}

// ListRecent returns the latest runs, newest first
func (r *IngestionRunRepositoryImpl) ListRecent(ctx context.Context, limit int) ([]*models.IngestionRun, error) {
	query := page(r.getDB(ctx).Model(&models.IngestionRun{}), "id DESC", limit, 0)

	var runs []*models.IngestionRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingestion runs: %w", err)
	}
	return runs, nil
}
