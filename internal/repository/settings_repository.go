package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sievehub/internal/models"
)

type NotificationSettingsRepository interface {
	Get(ctx context.Context, userID, projectID string) (*models.ProjectNotificationSetting, error)
	// GetBatch loads settings for many users of one project in a single
	// query; users without a row are simply absent from the result.
	GetBatch(ctx context.Context, userIDs []string, projectID string) (map[string]string, error)
	Upsert(ctx context.Context, userID, projectID, mode string) error
}

type notificationSettingsRepository struct {
	db *gorm.DB
}

func NewNotificationSettingsRepository(db *gorm.DB) NotificationSettingsRepository {
	return &notificationSettingsRepository{db: db}
}

func (r *notificationSettingsRepository) Get(ctx context.Context, userID, projectID string) (*models.ProjectNotificationSetting, error) {
	var setting models.ProjectNotificationSetting
	err := r.db.WithContext(ctx).
		First(&setting, "user_id = ? AND project_id = ?", userID, projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification setting: %w", err)
	}
	return &setting, nil
}

func (r *notificationSettingsRepository) GetBatch(ctx context.Context, userIDs []string, projectID string) (map[string]string, error) {
	if len(userIDs) == 0 {
		return map[string]string{}, nil
	}
	var settings []models.ProjectNotificationSetting
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND project_id = ?", userIDs, projectID).
		Find(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("batch get notification settings: %w", err)
	}
	modes := make(map[string]string, len(settings))
	for _, s := range settings {
		modes[s.UserID] = s.NotificationMode
	}
	return modes, nil
}

func (r *notificationSettingsRepository) Upsert(ctx context.Context, userID, projectID, mode string) error {
	setting := models.ProjectNotificationSetting{
		UserID:           userID,
		ProjectID:        projectID,
		NotificationMode: mode,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "project_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"notification_mode", "updated_at"}),
		}).
		Create(&setting).Error
	if err != nil {
		return fmt.Errorf("upsert notification setting: %w", err)
	}
	return nil
}
