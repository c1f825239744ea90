package businessflow

import (
	"context"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	"github.com/amirphl/workforce-ledger/utils"
	"github.com/rs/zerolog"
)

// DirectorySync refreshes the agent_info and agent_list caches from the reconciled log
type DirectorySync struct {
	callLogs  repository.CallLogRepository
	directory repository.AgentDirectoryRepository
	batchSize int
	logger    zerolog.Logger
}

func NewDirectorySync(callLogs repository.CallLogRepository, directory repository.AgentDirectoryRepository, batchSize int, logger zerolog.Logger) *DirectorySync {
	if batchSize <= 0 {
		batchSize = utils.HistoryFallbackBatchSize
	}
	return &DirectorySync{
		callLogs:  callLogs,
		directory: directory,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "directory_sync").Logger(),
	}
}

// Sync upserts the latest placement of the named agents. A nil slice refreshes every agent.
// Returns the number of directory entries written.
func (d *DirectorySync) Sync(ctx context.Context, agentNames []string) (int, error) {
	var latest []*models.UpdatedCallLog
	if agentNames == nil {
		rows, err := d.callLogs.LatestPerAgent(ctx, nil)
		if err != nil {
			return 0, err
		}
		latest = rows
	} else {
		for _, batch := range utils.Chunk(utils.Unique(agentNames), d.batchSize) {
			rows, err := d.callLogs.LatestPerAgent(ctx, batch)
			if err != nil {
				return 0, err
			}
			latest = append(latest, rows...)
		}
	}
	if len(latest) == 0 {
		return 0, nil
	}

	now := utils.UTCNow()
	entries := make([]*models.AgentInfo, 0, len(latest))
	names := make([]string, 0, len(latest))
	for _, row := range latest {
		if row.AgentName == "" {
			continue
		}
		entries = append(entries, &models.AgentInfo{
			AgentName: row.AgentName,
			TMName:    row.TMName,
			TLName:    row.TLName,
			GroupName: row.GroupName,
			UpdatedAt: now,
		})
		names = append(names, row.AgentName)
	}

	if err := d.directory.UpsertInfo(ctx, entries); err != nil {
		return 0, err
	}
	if err := d.directory.EnsureListed(ctx, names); err != nil {
		return 0, err
	}

	d.logger.Debug().Int("agents", len(entries)).Msg("agent directory refreshed")
	return len(entries), nil
}
