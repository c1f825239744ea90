// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/workforce-ledger/models"
	"gorm.io/gorm"
)

// ActivityLogRepositoryImpl implements ActivityLogRepository interface
type ActivityLogRepositoryImpl struct {
	*BaseRepository[models.ActivityLog, models.ActivityLogFilter]
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &ActivityLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ActivityLog, models.ActivityLogFilter](db),
	}
}

func (r *ActivityLogRepositoryImpl) applyFilter(query *gorm.DB, filter models.ActivityLogFilter) *gorm.DB {
	if filter.User != nil {
		query = query.Where(`"user" = ?`, *filter.User)
	}
	if filter.DateAfter != nil {
		query = query.Where(`"date" > ?`, *filter.DateAfter)
	}
	if filter.DateBefore != nil {
		query = query.Where(`"date" < ?`, *filter.DateBefore)
	}
	if filter.MsgContains != nil {
		query = query.Where("msg LIKE ?", "%"+*filter.MsgContains+"%")
	}
	return query
}

// ByFilter retrieves activity logs based on filter criteria
func (r *ActivityLogRepositoryImpl) ByFilter(ctx context.Context, filter models.ActivityLogFilter, orderBy string, limit, offset int) ([]*models.ActivityLog, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.ActivityLog{}), filter)
	query = page(query, orderBy, limit, offset)

	var logs []*models.ActivityLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
