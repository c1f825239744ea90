package models

import (
	"time"

	"github.com/google/uuid"
)

// Ingestion run statuses
const (
	IngestionRunStatusRunning   = "running"
	IngestionRunStatusCompleted = "completed"
	IngestionRunStatusFailed    = "failed"
)

// IngestionRun tracks one file-at-a-time ingestion from start to terminal state
type IngestionRun struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_ingestion_runs_uuid" json:"uuid"`
	SourceFile    string     `gorm:"size:255;not null;index" json:"source_file"`
	Actor         string     `gorm:"size:255" json:"actor"`
	Status        string     `gorm:"size:20;not null;default:running;index" json:"status"`
	Stage         string     `gorm:"size:40" json:"stage"`
	FailedStage   string     `gorm:"size:40" json:"failed_stage,omitempty"`
	TotalRows     int        `json:"total_rows"`
	SkippedRows   int        `json:"skipped_rows"`
	PartTimerRows int        `json:"part_timer_rows"`
	MinLogTime    *time.Time `json:"min_log_time,omitempty"`
	MaxLogTime    *time.Time `json:"max_log_time,omitempty"`
	ErrorMessage  *string    `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

func (IngestionRun) TableName() string {
	return "ingestion_runs"
}
