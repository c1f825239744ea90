// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/workforce-ledger/models"
	"gorm.io/gorm"
)

// TeamLeaderRepositoryImpl implements TeamLeaderRepository interface
type TeamLeaderRepositoryImpl struct {
	*BaseRepository[models.TeamLeader, models.TeamLeaderFilter]
}

// NewTeamLeaderRepository creates a new team leader repository
func NewTeamLeaderRepository(db *gorm.DB) TeamLeaderRepository {
	return &TeamLeaderRepositoryImpl{
		BaseRepository: NewBaseRepository[models.TeamLeader, models.TeamLeaderFilter](db),
	}
}

func (r *TeamLeaderRepositoryImpl) applyFilter(query *gorm.DB, filter models.TeamLeaderFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.TMID != nil {
		query = query.Where("tm_id = ?", *filter.TMID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	return query
}

// ByFilter retrieves team leaders based on filter criteria
func (r *TeamLeaderRepositoryImpl) ByFilter(ctx context.Context, filter models.TeamLeaderFilter, orderBy string, limit, offset int) ([]*models.TeamLeader, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.TeamLeader{}), filter)
	query = page(query, orderBy, limit, offset)

	var leaders []*models.TeamLeader
	if err := query.Find(&leaders).Error; err != nil {
		return nil, err
	}
	return leaders, nil
}

// ListActive returns every active team leader, oldest first
func (r *TeamLeaderRepositoryImpl) ListActive(ctx context.Context) ([]*models.TeamLeader, error) {
	active := true
	leaders, err := r.ByFilter(ctx, models.TeamLeaderFilter{IsActive: &active}, "id ASC", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list active team leaders: %w", err)
	}
	return leaders, nil
}

// UpdateHierarchy sets the owning manager and group of a team leader; empty names are left untouched
func (r *TeamLeaderRepositoryImpl) UpdateHierarchy(ctx context.Context, id uint, tmID *uint, tmName, groupName string) (err error) {
	updates := map[string]any{}
	if tmName != "" {
		updates["tm_name"] = tmName
		updates["tm_id"] = tmID
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

	result := db.Model(&models.TeamLeader{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update team leader %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("team leader not found with ID: %d", id)
	}
	return nil
}

// TeamManagerRepositoryImpl implements TeamManagerRepository interface
type TeamManagerRepositoryImpl struct {
	*BaseRepository[models.TeamManager, models.TeamManagerFilter]
}

// NewTeamManagerRepository creates a new team manager repository
func NewTeamManagerRepository(db *gorm.DB) TeamManagerRepository {
	return &TeamManagerRepositoryImpl{
		BaseRepository: NewBaseRepository[models.TeamManager, models.TeamManagerFilter](db),
	}
}

// ByName retrieves a team manager by its unique name
func (r *TeamManagerRepositoryImpl) ByName(ctx context.Context, name string) (*models.TeamManager, error) {
	var manager models.TeamManager
	err := r.getDB(ctx).Where("name = ?", name).Take(&manager).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find team manager %q: %w", name, err)
	}
	return &manager, nil
}

// List returns every team manager, active ones first, then oldest first
func (r *TeamManagerRepositoryImpl) List(ctx context.Context) ([]*models.TeamManager, error) {
	var managers []*models.TeamManager
	if err := r.getDB(ctx).Order("is_active DESC").Order("id ASC").Find(&managers).Error; err != nil {
		return nil, fmt.Errorf("failed to list team managers: %w", err)
	}
	return managers, nil
}

// ListActive returns every active team manager
func (r *TeamManagerRepositoryImpl) ListActive(ctx context.Context) ([]*models.TeamManager, error) {
	var managers []*models.TeamManager
	if err := r.getDB(ctx).Where("is_active = ?", true).Order("id ASC").Find(&managers).Error; err != nil {
		return nil, fmt.Errorf("failed to list active team managers: %w", err)
	}
	return managers, nil
}
