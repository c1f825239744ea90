// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgentDirectoryRepositoryImpl implements AgentDirectoryRepository interface
type AgentDirectoryRepositoryImpl struct {
	*BaseRepository[models.AgentInfo, struct{}]
}

// NewAgentDirectoryRepository creates a new agent directory repository
func NewAgentDirectoryRepository(db *gorm.DB) AgentDirectoryRepository {
	return &AgentDirectoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AgentInfo, struct{}](db),
	}
}

// UpsertInfo inserts or refreshes agent_info entries keyed by agent name
func (r *AgentDirectoryRepositoryImpl) UpsertInfo(ctx context.Context, entries []*models.AgentInfo) (err error) {
	if len(entries) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	now := utils.UTCNow()
	for _, e := range entries {
		e.UpdatedAt = now
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"tm_name", "tl_name", "group_name", "updated_at"}),
	}).CreateInBatches(entries, DefaultBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert agent info: %w", err)
	}
	return nil
}

// EnsureListed adds missing names to agent_list
func (r *AgentDirectoryRepositoryImpl) EnsureListed(ctx context.Context, agentNames []string) (err error) {
	if len(agentNames) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	defer finish(db, shouldCommit, &err)

	rows := make([]*models.AgentList, 0, len(agentNames))
	for _, name := range agentNames {
		rows = append(rows, &models.AgentList{AgentName: name})
	}

	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "agent_name"}},
		DoNothing: true,
	}).CreateInBatches(rows, DefaultBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to update agent list: %w", err)
	}
	return nil
}

// InfoByName retrieves the agent_info entry of one agent
func (r *AgentDirectoryRepositoryImpl) InfoByName(ctx context.Context, agentName string) (*models.AgentInfo, error) {
	var info models.AgentInfo
	err := r.getDB(ctx).Where("agent_name = ?", agentName).Take(&info).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find agent info for %q: %w", agentName, err)
	}
	return &info, nil
}

// ListNames returns every name on the agent list, sorted
func (r *AgentDirectoryRepositoryImpl) ListNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.getDB(ctx).Model(&models.AgentList{}).Order("agent_name").Pluck("agent_name", &names).Error; err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return names, nil
}
