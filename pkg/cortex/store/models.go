package store

import "time"

// DefaultProject is used when a record has no project name
const DefaultProject = "General"

// ScanResult is one persisted command or tool run
type ScanResult struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	ProjectName string    `gorm:"index;not null;default:General" json:"project_name"`
	Target      string    `json:"target"`
	CommandType string    `json:"command_type"`
	Output      string    `gorm:"type:text" json:"output"`
	AIAnalysis  string    `gorm:"type:text" json:"ai_analysis,omitempty"`
}

// TableName overrides the gorm default
func (ScanResult) TableName() string {
	return "scan_results"
}

// AgentMessage is one conversation turn mirrored from the agent loop
type AgentMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ProjectName string    `gorm:"index;not null" json:"project_name"`
	SessionID   string    `gorm:"index" json:"session_id"`
	Role        string    `json:"role"`
	Content     string    `gorm:"type:text" json:"content"`
}

// TableName overrides the gorm default
func (AgentMessage) TableName() string {
	return "agent_history"
}
