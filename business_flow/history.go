package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/workforce-ledger/app/metrics"
	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	"github.com/amirphl/workforce-ledger/utils"
	"github.com/rs/zerolog"
)

// PriorState is the hierarchy snapshot an agent carries into a new upload
type PriorState struct {
	Designation string
	Role        string
	GroupName   string
	TMName      string
	TLName      string
	Status      string
	LastSeen    *time.Time
}

// HistoryResult is the outcome of a history lookup
type HistoryResult struct {
	Priors   map[string]PriorState
	Degraded bool // the cutoff query failed and the looser fallback answered
}

// HistoryResolver looks up each agent's most recent reconciled state before an upload
type HistoryResolver struct {
	callLogs          repository.CallLogRepository
	labels            Labels
	batchSize         int
	fallbackBatchSize int
	logger            zerolog.Logger
	metrics           *metrics.IngestionMetrics
}

func NewHistoryResolver(callLogs repository.CallLogRepository, labels Labels, batchSize, fallbackBatchSize int, logger zerolog.Logger, m *metrics.IngestionMetrics) *HistoryResolver {
	if batchSize <= 0 {
		batchSize = utils.HistoryBatchSize
	}
	if fallbackBatchSize <= 0 {
		fallbackBatchSize = utils.HistoryFallbackBatchSize
	}
	return &HistoryResolver{
		callLogs:          callLogs,
		labels:            labels,
		batchSize:         batchSize,
		fallbackBatchSize: fallbackBatchSize,
		logger:            logger.With().Str("component", "history").Logger(),
		metrics:           m,
	}
}

// Resolve returns the latest state strictly earlier than cutoff for each named agent.
// Agents without history are absent. A nil cutoff means the upload has no dated rows and yields no history.
func (h *HistoryResolver) Resolve(ctx context.Context, agentNames []string, cutoff *time.Time) (*HistoryResult, error) {
	result := &HistoryResult{Priors: make(map[string]PriorState)}
	if len(agentNames) == 0 || cutoff == nil {
		return result, nil
	}

	err := h.collect(agentNames, h.batchSize, result.Priors, func(batch []string) ([]*models.UpdatedCallLog, error) {
		return h.callLogs.LatestBefore(ctx, batch, *cutoff)
	})
	if err == nil {
		return result, nil
	}

	h.logger.Warn().Err(err).
		Int("agents", len(agentNames)).
		Time("cutoff", *cutoff).
		Msg("cutoff history lookup failed, falling back to latest known state")
	h.metrics.HistoryFallback()

	result = &HistoryResult{Priors: make(map[string]PriorState), Degraded: true}
	err = h.collect(agentNames, h.fallbackBatchSize, result.Priors, func(batch []string) ([]*models.UpdatedCallLog, error) {
		return h.callLogs.LatestAny(ctx, batch)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryLookup, err)
	}
	return result, nil
}

func (h *HistoryResolver) collect(names []string, size int, into map[string]PriorState, query func([]string) ([]*models.UpdatedCallLog, error)) error {
	for _, batch := range utils.Chunk(names, size) {
		rows, err := query(batch)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if _, seen := into[row.AgentName]; seen {
				continue
			}
			into[row.AgentName] = h.priorFrom(row)
		}
	}
	return nil
}

// priorFrom fills blank history fields with the configured defaults
func (h *HistoryResolver) priorFrom(row *models.UpdatedCallLog) PriorState {
	return PriorState{
		Designation: firstNonEmpty(row.Designation, h.labels.DefaultDesignation),
		Role:        firstNonEmpty(row.Role, h.labels.DefaultRole),
		GroupName:   row.GroupName,
		TMName:      row.TMName,
		TLName:      row.TLName,
		Status:      firstNonEmpty(row.Status, h.labels.DefaultStatus),
		LastSeen:    row.LogTime,
	}
}
