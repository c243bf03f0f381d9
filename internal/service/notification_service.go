package service

import (
	"context"

	"sievehub/internal/cache"
	"sievehub/internal/models"
	"sievehub/internal/repository"
)

type NotificationService interface {
	GetUnread(ctx context.Context, userID string) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, userID string, notificationID int64) error
	MarkAllAsRead(ctx context.Context, userID string) error
	// SetProjectMode stores the user's mode for a project and refreshes
	// the cache so the next fan-out sees it immediately.
	SetProjectMode(ctx context.Context, userID, projectID, mode string) error
}

type notificationService struct {
	repo     repository.NotificationRepository
	settings repository.NotificationSettingsRepository
	cache    cache.Cache
}

func NewNotificationService(repo repository.NotificationRepository, settings repository.NotificationSettingsRepository, c cache.Cache) NotificationService {
	return &notificationService{repo: repo, settings: settings, cache: c}
}

func (s *notificationService) GetUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.GetUnreadByUser(ctx, userID)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID string, notificationID int64) error {
	affected, err := s.repo.MarkAsRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFoundError("notification not found")
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) SetProjectMode(ctx context.Context, userID, projectID, mode string) error {
	switch mode {
	case models.ModeMuted, models.ModeMyContributions, models.ModeAllEvents:
	default:
		return validationError("invalid notification mode %q", mode)
	}
	if err := s.settings.Upsert(ctx, userID, projectID, mode); err != nil {
		return err
	}
	s.cache.SetUserSetting(ctx, userID, projectID, mode)
	return nil
}
