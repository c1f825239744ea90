// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
}

// CallLogRepository defines read and maintenance operations over raw_call_logs and updated_call_logs
type CallLogRepository interface {
	LatestBefore(ctx context.Context, agentNames []string, cutoff time.Time) ([]*models.UpdatedCallLog, error)
	LatestAny(ctx context.Context, agentNames []string) ([]*models.UpdatedCallLog, error)
	LatestForAgent(ctx context.Context, agentName string) (*models.UpdatedCallLog, error)
	LatestPerAgent(ctx context.Context, agentNames []string) ([]*models.UpdatedCallLog, error)
	FillHierarchy(ctx context.Context, id uint, tmName, groupName string) error
	ByFilter(ctx context.Context, filter models.CallLogFilter, orderBy string, limit, offset int) ([]*models.UpdatedCallLog, error)
	RawByFilter(ctx context.Context, filter models.CallLogFilter, orderBy string, limit, offset int) ([]*models.RawCallLog, error)
	CountRaw(ctx context.Context, filter models.CallLogFilter) (int64, error)
	Count(ctx context.Context, filter models.CallLogFilter) (int64, error)
	SourceFiles(ctx context.Context) ([]string, error)
	RawDates(ctx context.Context, sourceFile string) ([]string, error)
	DeleteBySourceFile(ctx context.Context, sourceFile string, dates []string) (raw int64, updated int64, err error)
}

// TeamLeaderRepository defines operations for team leaders
type TeamLeaderRepository interface {
	Repository[models.TeamLeader, models.TeamLeaderFilter]
	ByFilter(ctx context.Context, filter models.TeamLeaderFilter, orderBy string, limit, offset int) ([]*models.TeamLeader, error)
	ListActive(ctx context.Context) ([]*models.TeamLeader, error)
	UpdateHierarchy(ctx context.Context, id uint, tmID *uint, tmName, groupName string) error
}

// TeamManagerRepository defines operations for team managers
type TeamManagerRepository interface {
	Repository[models.TeamManager, models.TeamManagerFilter]
	ByName(ctx context.Context, name string) (*models.TeamManager, error)
	List(ctx context.Context) ([]*models.TeamManager, error)
	ListActive(ctx context.Context) ([]*models.TeamManager, error)
}

// AgentDirectoryRepository defines operations for the agent_info and agent_list caches
type AgentDirectoryRepository interface {
	UpsertInfo(ctx context.Context, entries []*models.AgentInfo) error
	EnsureListed(ctx context.Context, agentNames []string) error
	InfoByName(ctx context.Context, agentName string) (*models.AgentInfo, error)
	ListNames(ctx context.Context) ([]string, error)
}

// ActivityLogRepository defines operations for activity logs
type ActivityLogRepository interface {
	Repository[models.ActivityLog, models.ActivityLogFilter]
	ByFilter(ctx context.Context, filter models.ActivityLogFilter, orderBy string, limit, offset int) ([]*models.ActivityLog, error)
}

// IngestionRunRepository defines operations for ingestion runs
type IngestionRunRepository interface {
	Repository[models.IngestionRun, struct{}]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.IngestionRun, error)
	Finish(ctx context.Context, run *models.IngestionRun) error
	ListRecent(ctx context.Context, limit int) ([]*models.IngestionRun, error)
}
