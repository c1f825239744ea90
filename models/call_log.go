// Package models contains domain entities for the workforce hierarchy and call-log ledger
package models

import "time"

// CallLogFields are the call columns shared by the raw and reconciled logs
type CallLogFields struct {
	ProfileID        string     `gorm:"size:255" json:"profile_id"`
	CallLogID        string     `gorm:"size:255;index" json:"call_log_id"`
	LogTime          *time.Time `gorm:"index" json:"log_time,omitempty"`
	LogType          string     `gorm:"size:255" json:"log_type"`
	State            string     `gorm:"size:255" json:"state"`
	CallType         string     `gorm:"size:255" json:"call_type"`
	OriginalCampaign string     `gorm:"size:255" json:"original_campaign"`
	CurrentCampaign  string     `gorm:"size:255" json:"current_campaign"`
	Ember            string     `gorm:"size:255" json:"ember"`
}

// RawCallLog is one row of an uploaded export, stored exactly as received
type RawCallLog struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	AgentName  string `gorm:"size:255;index:idx_raw_agent_name" json:"agent_name"`
	CallLogFields
	SourceFile string    `gorm:"size:255;index:idx_raw_source_file" json:"source_file"`
	RunUUID    string    `gorm:"size:36;index:idx_raw_run_uuid" json:"run_uuid"`
	UploadedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"uploaded_at"`
}

func (RawCallLog) TableName() string {
	return "raw_call_logs"
}

// UpdatedCallLog is a reconciled row: canonical name plus the hierarchy state in force for it
type UpdatedCallLog struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	AgentName string `gorm:"size:255;index:idx_updated_agent_name" json:"agent_name"`
	CallLogFields
	Designation string    `gorm:"size:100" json:"designation"`
	Role        string    `gorm:"size:100" json:"role"`
	GroupName   string    `gorm:"size:255" json:"group_name"`
	TMName      string    `gorm:"column:tm_name;size:255" json:"tm_name"`
	TLName      string    `gorm:"column:tl_name;size:255" json:"tl_name"`
	Status      string    `gorm:"size:100;not null;default:Employee" json:"status"`
	SourceFile  string    `gorm:"size:255;index:idx_updated_source_file" json:"source_file"`
	RunUUID     string    `gorm:"size:36;index:idx_updated_run_uuid" json:"run_uuid"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (UpdatedCallLog) TableName() string {
	return "updated_call_logs"
}

// CallLogFilter represents filter criteria for call-log queries on either table
type CallLogFilter struct {
	AgentName   *string
	AgentNames  []string
	SourceFile  *string
	RunUUID     *string
	LogDates    []string // YYYY-MM-DD
	LogBefore   *time.Time
	Designation *string
}

// RawCallLogColumns lists the raw_call_logs columns written on bulk load, in copy order
var RawCallLogColumns = []string{
	"agent_name", "profile_id", "call_log_id", "log_time", "log_type", "state",
	"call_type", "original_campaign", "current_campaign", "ember", "source_file", "run_uuid",
}

// UpdatedCallLogColumns lists the updated_call_logs columns written on bulk load, in copy order
var UpdatedCallLogColumns = []string{
	"agent_name", "profile_id", "call_log_id", "log_time", "log_type", "state",
	"call_type", "original_campaign", "current_campaign", "ember",
	"designation", "role", "group_name", "tm_name", "tl_name", "status", "source_file", "run_uuid",
}

// CopyValues returns the row in RawCallLogColumns order
func (r *RawCallLog) CopyValues() []any {
	return []any{
		r.AgentName, r.ProfileID, r.CallLogID, r.LogTime, r.LogType, r.State,
		r.CallType, r.OriginalCampaign, r.CurrentCampaign, r.Ember, r.SourceFile, r.RunUUID,
	}
}

// CopyValues returns the row in UpdatedCallLogColumns order
func (u *UpdatedCallLog) CopyValues() []any {
	return []any{
		u.AgentName, u.ProfileID, u.CallLogID, u.LogTime, u.LogType, u.State,
		u.CallType, u.OriginalCampaign, u.CurrentCampaign, u.Ember,
		u.Designation, u.Role, u.GroupName, u.TMName, u.TLName, u.Status, u.SourceFile, u.RunUUID,
	}
}
