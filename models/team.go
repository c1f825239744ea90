package models

import "time"

// TeamManager heads a group of team leaders. Managed administratively, never created by ingestion.
type TeamManager struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"size:255;not null;uniqueIndex:uk_team_managers_name" json:"name"`
	GroupName    string       `gorm:"size:255" json:"group_name"`
	IsActive     bool         `gorm:"not null;index" json:"is_active"`
	CreatedDate  time.Time    `gorm:"default:CURRENT_TIMESTAMP" json:"created_date"`
	EndDate      *time.Time   `json:"end_date,omitempty"`
	ReplacedByID *uint        `json:"replaced_by_id,omitempty"`
	ReplacedBy   *TeamManager `gorm:"foreignKey:ReplacedByID;references:ID" json:"replaced_by,omitempty"`
}

func (TeamManager) TableName() string {
	return "team_managers"
}

// TeamLeader supervises agents and reports to a team manager
type TeamLeader struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Name         string       `gorm:"size:255;not null;index" json:"name"`
	GroupName    string       `gorm:"size:255" json:"group_name"`
	TMID         *uint        `gorm:"column:tm_id;index" json:"tm_id,omitempty"`
	TeamManager  *TeamManager `gorm:"foreignKey:TMID;references:ID" json:"team_manager,omitempty"`
	TMName       string       `gorm:"column:tm_name;size:255" json:"tm_name"`
	IsActive     bool         `gorm:"not null;index" json:"is_active"`
	CreatedDate  time.Time    `gorm:"default:CURRENT_TIMESTAMP" json:"created_date"`
	EndDate      *time.Time   `json:"end_date,omitempty"`
	ReplacedByID *uint        `json:"replaced_by_id,omitempty"`
	ReplacedBy   *TeamLeader  `gorm:"foreignKey:ReplacedByID;references:ID" json:"replaced_by,omitempty"`
}

func (TeamLeader) TableName() string {
	return "team_leaders"
}

// TeamLeaderFilter represents filter criteria for team leader queries
type TeamLeaderFilter struct {
	ID       *uint
	Name     *string
	TMID     *uint
	IsActive *bool
}

// TeamManagerFilter represents filter criteria for team manager queries
type TeamManagerFilter struct {
	ID       *uint
	Name     *string
	IsActive *bool
}
