// Package testing provides test utilities and database setup for store-backed tests
package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/workforce-ledger/models"
	"github.com/amirphl/workforce-ledger/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTeamManager inserts an active team manager
func (tf *TestFixtures) CreateTeamManager(name, group string) (*models.TeamManager, error) {
	tm := &models.TeamManager{
		Name:        name,
		GroupName:   group,
		IsActive:    true,
		CreatedDate: utils.UTCNow(),
	}
	if err := tf.DB.DB.Create(tm).Error; err != nil {
		return nil, fmt.Errorf("failed to create team manager %s: %w", name, err)
	}
	return tm, nil
}

// CreateTeamLeader inserts an active team leader, linked to tm when given
func (tf *TestFixtures) CreateTeamLeader(name, group string, tm *models.TeamManager) (*models.TeamLeader, error) {
	tl := &models.TeamLeader{
		Name:        name,
		GroupName:   group,
		IsActive:    true,
		CreatedDate: utils.UTCNow(),
	}
	if tm != nil {
		tl.TMID = &tm.ID
		tl.TMName = tm.Name
	}
	if err := tf.DB.DB.Create(tl).Error; err != nil {
		return nil, fmt.Errorf("failed to create team leader %s: %w", name, err)
	}
	return tl, nil
}

// CreateInactiveTeamLeader inserts a team leader that has been retired
func (tf *TestFixtures) CreateInactiveTeamLeader(name string) (*models.TeamLeader, error) {
	tl, err := tf.CreateTeamLeader(name, "", nil)
	if err != nil {
		return nil, err
	}
	if err := tf.DB.DB.Model(tl).Update("is_active", false).Error; err != nil {
		return nil, fmt.Errorf("failed to deactivate team leader %s: %w", name, err)
	}
	tl.IsActive = false
	return tl, nil
}

// HistoryRow describes a reconciled row seeded as prior history
type HistoryRow struct {
	AgentName   string
	Designation string
	Role        string
	GroupName   string
	TMName      string
	TLName      string
	Status      string
	LogTime     time.Time
	SourceFile  string
}

// CreateHistory inserts reconciled rows as if an earlier upload had written them
func (tf *TestFixtures) CreateHistory(rows ...HistoryRow) ([]*models.UpdatedCallLog, error) {
	created := make([]*models.UpdatedCallLog, 0, len(rows))
	for _, r := range rows {
		source := r.SourceFile
		if source == "" {
			source = "previous.csv"
		}
		status := r.Status
		if status == "" {
			status = models.StatusEmployee
		}
		logTime := r.LogTime.UTC()
		row := &models.UpdatedCallLog{
			AgentName: r.AgentName,
			CallLogFields: models.CallLogFields{
				CallLogID: fmt.Sprintf("hist-%s-%d", r.AgentName, logTime.Unix()),
				LogTime:   &logTime,
			},
			Designation: r.Designation,
			Role:        r.Role,
			GroupName:   r.GroupName,
			TMName:      r.TMName,
			TLName:      r.TLName,
			Status:      status,
			SourceFile:  source,
		}
		if err := tf.DB.DB.Create(row).Error; err != nil {
			return nil, fmt.Errorf("failed to create history for %s: %w", r.AgentName, err)
		}
		created = append(created, row)
	}
	return created, nil
}
