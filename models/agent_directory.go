package models

import "time"

// AgentInfo is the directory entry holding an agent's current placement
type AgentInfo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AgentName string    `gorm:"size:255;not null;uniqueIndex:uk_agent_info_agent_name" json:"agent_name"`
	TMName    string    `gorm:"column:tm_name;size:255" json:"tm_name"`
	TLName    string    `gorm:"column:tl_name;size:255" json:"tl_name"`
	GroupName string    `gorm:"size:255" json:"group_name"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AgentInfo) TableName() string {
	return "agent_info"
}

// AgentList is the roster of every agent name ever seen
type AgentList struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	AgentName string `gorm:"size:255;not null;uniqueIndex:uk_agent_list_agent_name" json:"agent_name"`
}

func (AgentList) TableName() string {
	return "agent_list"
}
