package models

import (
	"time"

	"sievehub/internal/filter"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Sieve is a named, persisted, shareable saved filter over the project
// listing. TargetPath is always derived from FilterConditions on write;
// the stored copy exists only so the share link and list endpoints can
// serve it without re-encoding.
type Sieve struct {
	ID               string                        `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string                        `gorm:"not null" json:"name"`
	Description      string                        `json:"description,omitempty"`
	TargetPath       string                        `gorm:"not null" json:"target_path"`
	Visibility       string                        `gorm:"not null;default:private" json:"visibility"`
	Creator          string                        `gorm:"type:uuid;not null;index" json:"creator"`
	ShareLinkID      string                        `gorm:"type:uuid;not null;uniqueIndex:idx_sieves_share_link" json:"share_link_id"`
	FilterConditions filter.StoredFilterConditions `gorm:"type:jsonb" json:"filter_conditions"`
	FollowCount      int64                         `gorm:"not null;default:0" json:"follow_count"`
	CreatedAt        time.Time                     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time                     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Sieve) TableName() string {
	return "sieves"
}

// SieveFollow links a follower to a sieve. The composite primary key is
// what makes a double-follow a unique-constraint violation.
type SieveFollow struct {
	SieveID   string    `gorm:"type:uuid;primaryKey" json:"sieve_id"`
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SieveFollow) TableName() string {
	return "sieve_follows"
}

// ShareLink is a short-code pointer at a target path. EntityID ties the
// link back to the sieve owning it.
type ShareLink struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Code       string    `gorm:"not null;uniqueIndex" json:"code"`
	TargetURL  string    `gorm:"not null" json:"target_url"`
	EntityID   string    `gorm:"type:uuid" json:"entity_id,omitempty"`
	Visibility string    `gorm:"not null;default:public" json:"visibility"`
	CreatedBy  string    `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ShareLink) TableName() string {
	return "share_links"
}

// SieveWithShareLink is the composed read model returned by the sieve
// service: the sieve plus its share code and the public path built from it.
type SieveWithShareLink struct {
	Sieve
	ShareCode string `json:"share_code"`
	ShareURL  string `json:"share_url"`
}
