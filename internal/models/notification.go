package models

import "time"

// Notification modes a user can pick per project.
const (
	ModeMuted           = "muted"
	ModeMyContributions = "my_contributions"
	ModeAllEvents       = "all_events"
)

// DefaultNotificationMode applies when a user has no stored preference row.
// Unrecognized stored modes fall back to delivering ("fail open"), matching
// this default.
const DefaultNotificationMode = ModeMyContributions

// Notification is a delivered in-app notification row, written by the queue
// worker once an event survives recipient resolution and preference
// filtering.
type Notification struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         string    `gorm:"type:uuid;not null;index" json:"user_id"`
	ProjectID      string    `gorm:"type:uuid;not null" json:"project_id"`
	ProposalID     string    `gorm:"type:uuid" json:"proposal_id,omitempty"`
	ItemProposalID string    `gorm:"type:uuid" json:"item_proposal_id,omitempty"`
	VoterID        string    `gorm:"type:uuid" json:"voter_id,omitempty"`
	Type           string    `gorm:"not null" json:"type"`
	Reward         float64   `json:"reward,omitempty"`
	Read           bool      `gorm:"default:false" json:"read"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// ProjectNotificationSetting stores one user's mode for one project.
type ProjectNotificationSetting struct {
	UserID           string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	ProjectID        string    `gorm:"type:uuid;primaryKey" json:"project_id"`
	NotificationMode string    `gorm:"not null" json:"notification_mode"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ProjectNotificationSetting) TableName() string {
	return "project_notification_settings"
}
