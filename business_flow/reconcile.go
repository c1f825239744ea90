package businessflow

import (
	"context"

	"github.com/amirphl/workforce-ledger/app/services"
	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/utils"
	"golang.org/x/sync/errgroup"
)

// NormalizedRow is an export row paired with its canonical identity
type NormalizedRow struct {
	Record services.CallLogRecord
	Name   string
	Role   string
}

// Normalize canonicalizes the agent name of every record, preserving order
func Normalize(records []services.CallLogRecord) []NormalizedRow {
	rows := make([]NormalizedRow, len(records))
	for i, rec := range records {
		name, role := CanonicalizeName(rec.AgentName)
		rows[i] = NormalizedRow{Record: rec, Name: name, Role: role}
	}
	return rows
}

// ToRawCallLog maps a record to the raw log exactly as received
func ToRawCallLog(rec services.CallLogRecord, sourceFile, runUUID string) *models.RawCallLog {
	return &models.RawCallLog{
		AgentName:     rec.AgentName,
		CallLogFields: callLogFields(rec),
		SourceFile:    sourceFile,
		RunUUID:       runUUID,
	}
}

func callLogFields(rec services.CallLogRecord) models.CallLogFields {
	return models.CallLogFields{
		ProfileID:        rec.ProfileID,
		CallLogID:        rec.CallLogID,
		LogTime:          utils.TimeToUTCPtr(rec.LogTime),
		LogType:          rec.LogType,
		State:            rec.State,
		CallType:         rec.CallType,
		OriginalCampaign: rec.OriginalCampaign,
		CurrentCampaign:  rec.CurrentCampaign,
		Ember:            rec.Ember,
	}
}

// LeaderLookup resolves a canonical name to its active team leader record
type LeaderLookup interface {
	Lookup(name string) (*models.TeamLeader, bool)
}

// RowReconciler decides the hierarchy snapshot written for each row
type RowReconciler struct {
	labels Labels
}

func NewRowReconciler(labels Labels) *RowReconciler {
	return &RowReconciler{labels: labels}
}

// Reconcile builds the reconciled row. prior and leader may be nil.
// An active leader record wins, then prior state, then the configured defaults.
// Status is only ever carried forward.
func (r *RowReconciler) Reconcile(row NormalizedRow, prior *PriorState, leader *models.TeamLeader) *models.UpdatedCallLog {
	out := &models.UpdatedCallLog{
		AgentName:     row.Name,
		CallLogFields: callLogFields(row.Record),
		Role:          firstNonEmpty(row.Role, r.labels.DefaultRole),
		Status:        r.labels.DefaultStatus,
	}
	if prior != nil {
		out.Status = firstNonEmpty(prior.Status, r.labels.DefaultStatus)
	}

	if leader != nil {
		out.Designation = models.DesignationTeamLeader
		out.TLName = models.LeaderSelf
		out.TMName = leader.TMName
		out.GroupName = leader.GroupName
		if prior != nil {
			out.TMName = firstNonEmpty(out.TMName, prior.TMName)
			out.GroupName = firstNonEmpty(out.GroupName, prior.GroupName)
		}
		return out
	}

	if prior == nil {
		out.Designation = r.labels.DefaultDesignation
		return out
	}

	out.Designation = firstNonEmpty(prior.Designation, r.labels.DefaultDesignation)
	out.GroupName = prior.GroupName
	out.TMName = prior.TMName
	out.TLName = prior.TLName

	switch {
	case models.IsTeamLeader(out.Designation):
		out.Designation = models.DesignationTeamLeader
		out.TLName = models.LeaderSelf
	case models.IsTeamManager(out.Designation):
		out.Designation = models.DesignationTeamManager
		out.TLName = ""
	}
	return out
}

// ReconcileAll reconciles rows over workers goroutines; output index i belongs to input index i
func (r *RowReconciler) ReconcileAll(
	ctx context.Context,
	rows []NormalizedRow,
	priors map[string]PriorState,
	leaders LeaderLookup,
	sourceFile, runUUID string,
	workers int,
) ([]*models.UpdatedCallLog, error) {
	out := make([]*models.UpdatedCallLog, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	if workers <= 0 {
		workers = 1
	}
	chunkSize := (len(rows) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(rows); start += chunkSize {
		start := start
		end := min(start+chunkSize, len(rows))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				row := rows[i]
				var prior *PriorState
				if p, ok := priors[row.Name]; ok {
					prior = &p
				}
				var leader *models.TeamLeader
				if leaders != nil {
					if tl, ok := leaders.Lookup(row.Name); ok {
						leader = tl
					}
				}
				rec := r.Reconcile(row, prior, leader)
				rec.SourceFile = sourceFile
				rec.RunUUID = runUUID
				out[i] = rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
