package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/workforce-ledger/app/dto"
	"github.com/amirphl/workforce-ledger/repository"
	"github.com/rs/zerolog"
)

// AgentStateFlow answers what hierarchy state an agent carried at a point in time
type AgentStateFlow interface {
	State(ctx context.Context, req *dto.AgentStateRequest) (*dto.AgentStateResponse, error)
}

// AgentStateFlowImpl implements AgentStateFlow
type AgentStateFlowImpl struct {
	callLogs  repository.CallLogRepository
	history   *HistoryResolver
	hierarchy *HierarchyRegistry
	logger    zerolog.Logger
}

func NewAgentStateFlow(callLogs repository.CallLogRepository, history *HistoryResolver, hierarchy *HierarchyRegistry, logger zerolog.Logger) AgentStateFlow {
	return &AgentStateFlowImpl{
		callLogs:  callLogs,
		history:   history,
		hierarchy: hierarchy,
		logger:    logger.With().Str("component", "agent_state").Logger(),
	}
}

// State canonicalizes the requested name and returns its latest reconciled row at or before AsOf.
// Without AsOf the newest row is used.
func (f *AgentStateFlowImpl) State(ctx context.Context, req *dto.AgentStateRequest) (*dto.AgentStateResponse, error) {
	if req == nil {
		return nil, ErrAgentNameMissing
	}
	name, _ := CanonicalizeName(req.AgentName)
	if name == "" {
		return nil, ErrAgentNameMissing
	}

	if err := f.hierarchy.Load(ctx); err != nil {
		return nil, err
	}
	_, activeTL := f.hierarchy.Lookup(name)
	resp := &dto.AgentStateResponse{AgentName: name, ActiveTL: activeTL}

	if req.AsOf == nil {
		row, err := f.callLogs.LatestForAgent(ctx, name)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return resp, nil
		}
		prior := f.history.priorFrom(row)
		fillState(resp, &prior)
		return resp, nil
	}

	// rows logged exactly at AsOf count as in force
	cutoff := req.AsOf.UTC().Add(time.Microsecond)
	result, err := f.history.Resolve(ctx, []string{name}, &cutoff)
	if err != nil {
		return nil, err
	}
	if result.Degraded {
		f.logger.Warn().Str("agent", name).Msg("state answered by the fallback history query")
	}
	if prior, ok := result.Priors[name]; ok {
		fillState(resp, &prior)
	}
	return resp, nil
}

func fillState(resp *dto.AgentStateResponse, prior *PriorState) {
	resp.Found = true
	resp.Designation = prior.Designation
	resp.Role = prior.Role
	resp.GroupName = prior.GroupName
	resp.TMName = prior.TMName
	resp.TLName = prior.TLName
	resp.Status = prior.Status
	resp.LastSeen = prior.LastSeen
}
