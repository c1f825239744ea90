package businessflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/repository"
	"github.com/amirphl/workforce-ledger/utils"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// HierarchyRegistry answers whether a canonical name is an active team leader and keeps team leader records in step with ingested rows.
// Stored leader and manager names are canonicalized before every comparison.
type HierarchyRegistry struct {
	db       *gorm.DB
	leaders  repository.TeamLeaderRepository
	managers repository.TeamManagerRepository
	callLogs repository.CallLogRepository
	logger   zerolog.Logger

	mu      sync.RWMutex
	active  map[string]*models.TeamLeader
	retired map[string]*models.TeamLeader
}

func NewHierarchyRegistry(
	db *gorm.DB,
	leaders repository.TeamLeaderRepository,
	managers repository.TeamManagerRepository,
	callLogs repository.CallLogRepository,
	logger zerolog.Logger,
) *HierarchyRegistry {
	return &HierarchyRegistry{
		db:       db,
		leaders:  leaders,
		managers: managers,
		callLogs: callLogs,
		logger:   logger.With().Str("component", "hierarchy").Logger(),
		active:   make(map[string]*models.TeamLeader),
		retired:  make(map[string]*models.TeamLeader),
	}
}

// Load snapshots the team leaders. When two active records canonicalize to one name the oldest wins.
// Retired leaders are kept apart so ingestion never recreates them.
func (h *HierarchyRegistry) Load(ctx context.Context) error {
	leaders, err := h.leaders.ByFilter(ctx, models.TeamLeaderFilter{}, "id ASC", 0, 0)
	if err != nil {
		return fmt.Errorf("failed to load team leaders: %w", err)
	}

	active := make(map[string]*models.TeamLeader, len(leaders))
	retired := make(map[string]*models.TeamLeader)
	for _, tl := range leaders {
		key, _ := CanonicalizeName(tl.Name)
		if key == "" {
			continue
		}
		if !tl.IsActive {
			if _, seen := retired[key]; !seen {
				retired[key] = tl
			}
			continue
		}
		if _, dup := active[key]; dup {
			h.logger.Warn().Str("name", tl.Name).Uint("id", tl.ID).Msg("duplicate active team leader ignored")
			continue
		}
		active[key] = tl
	}

	h.mu.Lock()
	h.active = active
	h.retired = retired
	h.mu.Unlock()
	return nil
}

// Lookup returns the active team leader record for a canonical name
func (h *HierarchyRegistry) Lookup(name string) (*models.TeamLeader, bool) {
	key, _ := CanonicalizeName(name)
	h.mu.RLock()
	defer h.mu.RUnlock()
	tl, ok := h.active[key]
	return tl, ok
}

// Retired returns the retired team leader record for a canonical name that has no active record
func (h *HierarchyRegistry) Retired(name string) (*models.TeamLeader, bool) {
	key, _ := CanonicalizeName(name)
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.active[key]; ok {
		return nil, false
	}
	tl, ok := h.retired[key]
	return tl, ok
}

// Len returns the number of active team leaders known
func (h *HierarchyRegistry) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active)
}

// Absorb creates a team leader record for every name reconciled as Team Leader that has no record at all,
// active or retired, and fills blank manager/group fields of existing leaders from the newest row. Team managers are never created.
func (h *HierarchyRegistry) Absorb(ctx context.Context, rows []*models.UpdatedCallLog) ([]*models.TeamLeader, error) {
	names, latest := latestLeaderRows(rows)
	if len(names) == 0 {
		return nil, nil
	}

	var created, refreshed []*models.TeamLeader
	err := repository.WithTransaction(ctx, h.db, func(txCtx context.Context) error {
		for _, name := range names {
			row := latest[name]
			tmID, err := h.managerID(txCtx, row.TMName)
			if err != nil {
				return err
			}

			if existing, ok := h.Lookup(name); ok {
				tmName, groupName := "", ""
				if existing.TMName == "" {
					tmName = row.TMName
				}
				if existing.GroupName == "" {
					groupName = row.GroupName
				}
				if tmName == "" && groupName == "" {
					continue
				}
				if err := h.leaders.UpdateHierarchy(txCtx, existing.ID, tmID, tmName, groupName); err != nil {
					return err
				}
				next := *existing
				if tmName != "" {
					next.TMName, next.TMID = tmName, tmID
				}
				if groupName != "" {
					next.GroupName = groupName
				}
				refreshed = append(refreshed, &next)
				continue
			}
			if retired, ok := h.Retired(name); ok {
				h.logger.Debug().Str("name", name).Uint("id", retired.ID).Msg("retired team leader left retired")
				continue
			}

			tl := &models.TeamLeader{
				Name:        name,
				GroupName:   row.GroupName,
				TMID:        tmID,
				TMName:      row.TMName,
				IsActive:    true,
				CreatedDate: utils.UTCNow(),
			}
			if err := h.leaders.Save(txCtx, tl); err != nil {
				return fmt.Errorf("failed to create team leader %q: %w", name, err)
			}
			created = append(created, tl)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	for _, tl := range append(created, refreshed...) {
		key, _ := CanonicalizeName(tl.Name)
		h.active[key] = tl
	}
	h.mu.Unlock()

	for _, tl := range created {
		h.logger.Info().Str("name", tl.Name).Str("tm_name", tl.TMName).Str("group", tl.GroupName).Msg("team leader created")
	}
	return created, nil
}

// managerID resolves a manager name to its record id by canonical name; unknown managers yield nil
func (h *HierarchyRegistry) managerID(ctx context.Context, tmName string) (*uint, error) {
	key, _ := CanonicalizeName(tmName)
	if key == "" {
		return nil, nil
	}
	tm, err := h.managers.ByName(ctx, tmName)
	if err != nil {
		return nil, err
	}
	if tm == nil {
		managers, err := h.managers.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, candidate := range managers {
			if name, _ := CanonicalizeName(candidate.Name); name == key {
				tm = candidate
				break
			}
		}
	}
	if tm == nil {
		h.logger.Debug().Str("tm_name", tmName).Msg("team manager not found, leader left unlinked")
		return nil, nil
	}
	return &tm.ID, nil
}

// Preserve copies each active leader's manager and group onto the leader's own newest reconciled row where that row lacks them.
// Returns the number of rows updated.
func (h *HierarchyRegistry) Preserve(ctx context.Context) (int, error) {
	h.mu.RLock()
	leaders := make(map[string]*models.TeamLeader, len(h.active))
	for name, tl := range h.active {
		leaders[name] = tl
	}
	h.mu.RUnlock()

	updated := 0
	for name, tl := range leaders {
		if tl.TMName == "" && tl.GroupName == "" {
			continue
		}
		row, err := h.callLogs.LatestForAgent(ctx, name)
		if err != nil {
			return updated, err
		}
		if row == nil {
			continue
		}

		tmName, groupName := "", ""
		if tl.TMName != "" && row.TMName == "" {
			tmName = tl.TMName
		}
		if tl.GroupName != "" && row.GroupName == "" {
			groupName = tl.GroupName
		}
		if tmName == "" && groupName == "" {
			continue
		}
		if err := h.callLogs.FillHierarchy(ctx, row.ID, tmName, groupName); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// latestLeaderRows picks the newest Team Leader row per name, keeping first-seen name order
func latestLeaderRows(rows []*models.UpdatedCallLog) ([]string, map[string]*models.UpdatedCallLog) {
	var names []string
	latest := make(map[string]*models.UpdatedCallLog)
	for _, row := range rows {
		if row.AgentName == "" || !models.IsTeamLeader(row.Designation) {
			continue
		}
		current, ok := latest[row.AgentName]
		if !ok {
			names = append(names, row.AgentName)
			latest[row.AgentName] = row
			continue
		}
		if newerRow(row, current) {
			latest[row.AgentName] = row
		}
	}
	return names, latest
}

// newerRow orders by log time with undated rows oldest; equal times prefer the later row in the file
func newerRow(candidate, current *models.UpdatedCallLog) bool {
	switch {
	case candidate.LogTime == nil:
		return current.LogTime == nil
	case current.LogTime == nil:
		return true
	default:
		return !candidate.LogTime.Before(*current.LogTime)
	}
}
