package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"sievehub/internal/models"
)

type ProjectRepository interface {
	// OwnerOf returns the creator of the project, or "" when the project
	// does not exist.
	OwnerOf(ctx context.Context, projectID string) (string, error)
}

type projectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) OwnerOf(ctx context.Context, projectID string) (string, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Select("creator").
		First(&project, "id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get project owner: %w", err)
	}
	return project.Creator, nil
}

type ItemProposalRepository interface {
	// Contributors returns the proposal creator and the distinct voters.
	Contributors(ctx context.Context, itemProposalID string) (creator string, voters []string, err error)
}

type itemProposalRepository struct {
	db *gorm.DB
}

func NewItemProposalRepository(db *gorm.DB) ItemProposalRepository {
	return &itemProposalRepository{db: db}
}

func (r *itemProposalRepository) Contributors(ctx context.Context, itemProposalID string) (string, []string, error) {
	var proposal models.ItemProposal
	err := r.db.WithContext(ctx).
		Select("creator").
		First(&proposal, "id = ?", itemProposalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("get item proposal: %w", err)
	}

	var voters []string
	err = r.db.WithContext(ctx).Model(&models.ItemProposalVote{}).
		Distinct("voter").
		Where("item_proposal_id = ?", itemProposalID).
		Pluck("voter", &voters).Error
	if err != nil {
		return "", nil, fmt.Errorf("get item proposal voters: %w", err)
	}
	return proposal.Creator, voters, nil
}
