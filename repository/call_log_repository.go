// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/workforce-ledger/models"
	"gorm.io/gorm"
)

const (
	latestBeforeQuery = `
SELECT * FROM (
	SELECT updated_call_logs.*,
		ROW_NUMBER() OVER (PARTITION BY agent_name ORDER BY log_time DESC, id DESC) AS rn
	FROM updated_call_logs
	WHERE agent_name IN ? AND log_time < ?
) ranked WHERE rn = 1`

	latestAnyQuery = `
SELECT * FROM (
	SELECT updated_call_logs.*,
		ROW_NUMBER() OVER (
			PARTITION BY agent_name
			ORDER BY CASE WHEN log_time IS NULL THEN 1 ELSE 0 END, log_time DESC, id DESC
		) AS rn
	FROM updated_call_logs
	WHERE agent_name IN ?
) ranked WHERE rn = 1`

	latestAllQuery = `
SELECT * FROM (
	SELECT updated_call_logs.*,
		ROW_NUMBER() OVER (
			PARTITION BY agent_name
			ORDER BY CASE WHEN log_time IS NULL THEN 1 ELSE 0 END, log_time DESC, id DESC
		) AS rn
	FROM updated_call_logs
) ranked WHERE rn = 1`

	nullsLastOrder = "CASE WHEN log_time IS NULL THEN 1 ELSE 0 END, log_time DESC, id DESC"
)

// CallLogRepositoryImpl implements CallLogRepository interface
type CallLogRepositoryImpl struct {
	*BaseRepository[models.UpdatedCallLog, models.CallLogFilter]
}

// NewCallLogRepository creates a new call log repository
func NewCallLogRepository(db *gorm.DB) CallLogRepository {
	return &CallLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UpdatedCallLog, models.CallLogFilter](db),
	}
}

// LatestBefore returns, per agent, the most recent reconciled row strictly earlier than cutoff
func (r *CallLogRepositoryImpl) LatestBefore(ctx context.Context, agentNames []string, cutoff time.Time) ([]*models.UpdatedCallLog, error) {
	if len(agentNames) == 0 {
		return nil, nil
	}

	var rows []*models.UpdatedCallLog
	if err := r.getDB(ctx).Raw(latestBeforeQuery, agentNames, cutoff).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query latest call logs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return rows, nil
}

// LatestAny returns, per agent, the most recent reconciled row regardless of time; undated rows sort last
func (r *CallLogRepositoryImpl) LatestAny(ctx context.Context, agentNames []string) ([]*models.UpdatedCallLog, error) {
	if len(agentNames) == 0 {
		return nil, nil
	}

	var rows []*models.UpdatedCallLog
	if err := r.getDB(ctx).Raw(latestAnyQuery, agentNames).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query latest call logs: %w", err)
	}
	return rows, nil
}

// LatestPerAgent returns the most recent reconciled row of each named agent, or of every agent when names is nil
func (r *CallLogRepositoryImpl) LatestPerAgent(ctx context.Context, agentNames []string) ([]*models.UpdatedCallLog, error) {
	if agentNames == nil {
		var rows []*models.UpdatedCallLog
		if err := r.getDB(ctx).Raw(latestAllQuery).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("failed to query latest call logs for all agents: %w", err)
		}
		return rows, nil
	}
	return r.LatestAny(ctx, agentNames)
}

// LatestForAgent returns the single most recent reconciled row for an agent
func (r *CallLogRepositoryImpl) LatestForAgent(ctx context.Context, agentName string) (*models.UpdatedCallLog, error) {
	var row models.UpdatedCallLog
	err := r.getDB(ctx).
		Where("agent_name = ?", agentName).
		Order(nullsLastOrder).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find latest call log for %q: %w", agentName, err)
	}
	return &row, nil
}

// FillHierarchy sets tm_name and group_name on one reconciled row; empty values are left untouched
func (r *CallLogRepositoryImpl) FillHierarchy(ctx context.Context, id uint, tmName, groupName string) (err error) {
	updates := map[string]any{}
	if tmName != "" {
		updates["tm_name"] = tmName
	}
	if groupName != "" {
		updates["group_name"] = groupName
	}
	if len(updates) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	result := db.Model(&models.UpdatedCallLog{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update hierarchy of call log %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("call log not found with ID: %d", id)
	}
	return nil
}

// logDateExpr renders log_time as YYYY-MM-DD for the active dialect
func logDateExpr(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "TO_CHAR(log_time, 'YYYY-MM-DD')"
	}
	return "DATE(log_time)"
}

// applyFilter applies filter criteria to a GORM query on either call log table
func (r *CallLogRepositoryImpl) applyFilter(query *gorm.DB, filter models.CallLogFilter) *gorm.DB {
	if filter.AgentName != nil {
		query = query.Where("agent_name = ?", *filter.AgentName)
	}
	if len(filter.AgentNames) > 0 {
		query = query.Where("agent_name IN ?", filter.AgentNames)
	}
	if filter.SourceFile != nil {
		query = query.Where("source_file = ?", *filter.SourceFile)
	}
	if filter.RunUUID != nil {
		query = query.Where("run_uuid = ?", *filter.RunUUID)
	}
	if len(filter.LogDates) > 0 {
		query = query.Where(logDateExpr(query)+" IN ?", filter.LogDates)
	}
	if filter.LogBefore != nil {
		query = query.Where("log_time < ?", *filter.LogBefore)
	}
	if filter.Designation != nil {
		query = query.Where("designation = ?", *filter.Designation)
	}
	return query
}

// ByFilter retrieves reconciled call logs based on filter criteria
func (r *CallLogRepositoryImpl) ByFilter(ctx context.Context, filter models.CallLogFilter, orderBy string, limit, offset int) ([]*models.UpdatedCallLog, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.UpdatedCallLog{}), filter)
	query = page(query, orderBy, limit, offset)

	var rows []*models.UpdatedCallLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RawByFilter retrieves raw call logs based on filter criteria
func (r *CallLogRepositoryImpl) RawByFilter(ctx context.Context, filter models.CallLogFilter, orderBy string, limit, offset int) ([]*models.RawCallLog, error) {
	if filter.Designation != nil {
		return nil, errors.New("designation filter is not supported on raw call logs")
	}
	query := r.applyFilter(r.getDB(ctx).Model(&models.RawCallLog{}), filter)
	query = page(query, orderBy, limit, offset)

	var rows []*models.RawCallLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of reconciled call logs matching the filter
func (r *CallLogRepositoryImpl) Count(ctx context.Context, filter models.CallLogFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.getDB(ctx).Model(&models.UpdatedCallLog{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountRaw returns the number of raw call logs matching the filter
func (r *CallLogRepositoryImpl) CountRaw(ctx context.Context, filter models.CallLogFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.getDB(ctx).Model(&models.RawCallLog{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SourceFiles lists every distinct uploaded file name
func (r *CallLogRepositoryImpl) SourceFiles(ctx context.Context) ([]string, error) {
	var files []string
	err := r.getDB(ctx).Model(&models.RawCallLog{}).
		Distinct("source_file").
		Order("source_file").
		Pluck("source_file", &files).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list source files: %w", err)
	}
	return files, nil
}

// RawDates lists the distinct YYYY-MM-DD log dates of one uploaded file
func (r *CallLogRepositoryImpl) RawDates(ctx context.Context, sourceFile string) ([]string, error) {
	db := r.getDB(ctx)
	expr := logDateExpr(db)

	var dates []string
	err := db.Raw(
		"SELECT DISTINCT "+expr+" AS log_date FROM raw_call_logs WHERE source_file = ? AND log_time IS NOT NULL ORDER BY log_date",
		sourceFile,
	).Scan(&dates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list dates of %q: %w", sourceFile, err)
	}
	return dates, nil
}

// DeleteBySourceFile removes an upload from both logs; when dates are given only those log dates are removed
func (r *CallLogRepositoryImpl) DeleteBySourceFile(ctx context.Context, sourceFile string, dates []string) (raw int64, updated int64, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer finish(db, shouldCommit, &err)

	filter := models.CallLogFilter{SourceFile: &sourceFile, LogDates: dates}

	res := r.applyFilter(db, filter).Delete(&models.RawCallLog{})
	if res.Error != nil {
		return 0, 0, fmt.Errorf("failed to delete raw call logs of %q: %w", sourceFile, res.Error)
	}
	raw = res.RowsAffected

	res = r.applyFilter(db, filter).Delete(&models.UpdatedCallLog{})
	if res.Error != nil {
		return 0, 0, fmt.Errorf("failed to delete updated call logs of %q: %w", sourceFile, res.Error)
	}
	updated = res.RowsAffected

	return raw, updated, nil
}

// page applies ordering and pagination
func page(query *gorm.DB, orderBy string, limit, offset int) *gorm.DB {
	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}
