package models

import "time"

// Project is the minimal projection of the platform's project table that
// notification routing needs: who owns it.
type Project struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Creator   string    `gorm:"type:uuid;not null;index" json:"creator"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Project) TableName() string {
	return "projects"
}

// ItemProposal is a proposed item-level change within a project.
type ItemProposal struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID string    `gorm:"type:uuid;not null;index" json:"project_id"`
	Creator   string    `gorm:"type:uuid;not null" json:"creator"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ItemProposal) TableName() string {
	return "item_proposals"
}

// ItemProposalVote records one user's vote on an item proposal. Voters are
// part of the fan-out audience for item-proposal events.
type ItemProposalVote struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemProposalID string    `gorm:"type:uuid;not null;index" json:"item_proposal_id"`
	Voter          string    `gorm:"type:uuid;not null" json:"voter"`
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ItemProposalVote) TableName() string {
	return "item_proposal_votes"
}
