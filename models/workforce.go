package models

import "strings"

// Designations
const (
	DesignationAgent       = "Agent"
	DesignationTeamLeader  = "Team Leader"
	DesignationTeamManager = "Team Manager"
)

// Employment roles derived from the raw agent name
const (
	RoleFullTimer = "Full-Timer"
	RolePartTimer = "Part-Timer"
)

// Employment statuses
const (
	StatusEmployee = "Employee"
)

// LeaderSelf is the tl_name written on a team leader's own rows
const LeaderSelf = "Self"

// IsTeamLeader reports whether a designation names a team leader ("Team Leader" or "TL")
func IsTeamLeader(designation string) bool {
	d := strings.TrimSpace(designation)
	return strings.EqualFold(d, DesignationTeamLeader) || strings.EqualFold(d, "TL")
}

// IsTeamManager reports whether a designation names a team manager ("Team Manager" or "TM")
func IsTeamManager(designation string) bool {
	d := strings.TrimSpace(designation)
	return strings.EqualFold(d, DesignationTeamManager) || strings.EqualFold(d, "TM")
}

// AllModels returns every table managed by the ledger, in migration order
func AllModels() []any {
	return []any{
		&TeamManager{},
		&TeamLeader{},
		&RawCallLog{},
		&UpdatedCallLog{},
		&AgentInfo{},
		&AgentList{},
		&ActivityLog{},
		&IngestionRun{},
	}
}
