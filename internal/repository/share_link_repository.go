package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sievehub/internal/models"
)

type ShareLinkRepository interface {
	// Ensure returns the existing link for (targetURL, visibility) or
	// creates one with a fresh code.
	Ensure(ctx context.Context, targetURL, visibility, createdBy string) (*models.ShareLink, error)
	GetByID(ctx context.Context, id string) (*models.ShareLink, error)
	GetByCode(ctx context.Context, code string) (*models.ShareLink, error)
	Update(ctx context.Context, id string, updates map[string]any) error
}

type shareLinkRepository struct {
	db *gorm.DB
}

func NewShareLinkRepository(db *gorm.DB) ShareLinkRepository {
	return &shareLinkRepository{db: db}
}

func (r *shareLinkRepository) Ensure(ctx context.Context, targetURL, visibility, createdBy string) (*models.ShareLink, error) {
	var link models.ShareLink
	err := r.db.WithContext(ctx).
		Where("target_url = ? AND visibility = ?", targetURL, visibility).
		First(&link).Error
	if err == nil {
		return &link, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup share link: %w", err)
	}
	link = models.ShareLink{
		ID:         uuid.NewString(),
		Code:       newShareCode(),
		TargetURL:  targetURL,
		Visibility: visibility,
		CreatedBy:  createdBy,
	}
	if err := r.db.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, fmt.Errorf("create share link: %w", err)
	}
	return &link, nil
}

func (r *shareLinkRepository) GetByID(ctx context.Context, id string) (*models.ShareLink, error) {
	var link models.ShareLink
	err := r.db.WithContext(ctx).First(&link, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share link: %w", err)
	}
	return &link, nil
}

func (r *shareLinkRepository) GetByCode(ctx context.Context, code string) (*models.ShareLink, error) {
	var link models.ShareLink
	err := r.db.WithContext(ctx).First(&link, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share link by code: %w", err)
	}
	return &link, nil
}

func (r *shareLinkRepository) Update(ctx context.Context, id string, updates map[string]any) error {
	err := r.db.WithContext(ctx).Model(&models.ShareLink{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update share link: %w", err)
	}
	return nil
}

// newShareCode produces a short URL-safe code. UUID-derived, 12 chars is
// plenty for collision headroom at this scale.
func newShareCode() string {
	id := uuid.NewString()
	return id[:8] + id[9:13]
}
