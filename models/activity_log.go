package models

import "time"

// ActivityLog records who did what, and when
type ActivityLog struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	User string    `gorm:"size:255;index" json:"user"`
	Msg  string    `gorm:"type:text" json:"msg"`
	Date time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"date"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// ActivityLogFilter represents filter criteria for activity log queries
type ActivityLogFilter struct {
	User        *string
	DateAfter   *time.Time
	DateBefore  *time.Time
	MsgContains *string
}
