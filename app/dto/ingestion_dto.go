package dto

import (
	"io"
	"time"
)

// IngestRequest describes one call-log upload
// Format is csv or xlsx; when empty it is taken from SourceName's extension
// Actor is recorded on the run and in the activity log
type IngestRequest struct {
	Reader     io.Reader `json:"-" validate:"required"`
	SourceName string    `json:"source_name" validate:"required,max=255"`
	Format     string    `json:"format,omitempty" validate:"omitempty,oneof=csv xlsx"`
	Actor      string    `json:"actor,omitempty" validate:"omitempty,max=255"`
}

// IngestResponse summarizes a completed ingestion
type IngestResponse struct {
	Message         string     `json:"message"`
	RunUUID         string     `json:"run_uuid"`
	SourceName      string     `json:"source_name"`
	Stage           string     `json:"stage"`
	TotalRows       int        `json:"total_rows"`
	SkippedRows     int        `json:"skipped_rows"`
	PartTimerRows   int        `json:"part_timer_rows"`
	Agents          int        `json:"agents"`
	AgentsWithPrior int        `json:"agents_with_prior"`
	HistoryDegraded bool       `json:"history_degraded"`
	LeadersCreated  []string   `json:"leaders_created,omitempty"`
	LeadersRefitted int        `json:"leaders_refitted"`
	DirectoryRows   int        `json:"directory_rows"`
	MinLogTime      *time.Time `json:"min_log_time,omitempty"`
	MaxLogTime      *time.Time `json:"max_log_time,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
	Duration        string     `json:"duration"`
}

// DeleteFileRequest removes an upload, or only some of its log dates (YYYY-MM-DD)
type DeleteFileRequest struct {
	SourceName string   `json:"source_name" validate:"required,max=255"`
	Dates      []string `json:"dates,omitempty" validate:"omitempty,dive,required"`
	Actor      string   `json:"actor,omitempty"`
}

// DeleteFileResponse reports rows removed from each log
type DeleteFileResponse struct {
	Message     string `json:"message"`
	RawRows     int64  `json:"raw_rows"`
	UpdatedRows int64  `json:"updated_rows"`
}

// AgentStateRequest asks for an agent's resolved state; AsOf nil means latest
type AgentStateRequest struct {
	AgentName string     `json:"agent_name" validate:"required"`
	AsOf      *time.Time `json:"as_of,omitempty"`
}

// AgentStateResponse is the hierarchy snapshot in force for an agent
type AgentStateResponse struct {
	AgentName   string     `json:"agent_name"`
	Found       bool       `json:"found"`
	Designation string     `json:"designation,omitempty"`
	Role        string     `json:"role,omitempty"`
	GroupName   string     `json:"group_name,omitempty"`
	TMName      string     `json:"tm_name,omitempty"`
	TLName      string     `json:"tl_name,omitempty"`
	Status      string     `json:"status,omitempty"`
	LastSeen    *time.Time `json:"last_seen,omitempty"`
	ActiveTL    bool       `json:"active_team_leader"`
}
