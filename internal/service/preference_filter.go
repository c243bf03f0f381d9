package service

import (
	"context"
	"fmt"

	"sievehub/internal/cache"
	"sievehub/internal/models"
	"sievehub/internal/repository"
)

// ShouldDeliver decides whether a recipient with the given stored mode and
// role flags receives an event.
//
// For createItemProposal under my_contributions only the proposal creator
// qualifies: it is a "someone proposed an item" notice for the proposer,
// so the project owner being a resolved candidate upstream is not enough.
// Unrecognized modes deliver (fail open), matching the default preference.
func ShouldDeliver(mode, eventType string, rec Recipient) bool {
	switch mode {
	case models.ModeMuted:
		return false
	case models.ModeAllEvents:
		return true
	case models.ModeMyContributions:
		if eventType == models.EventCreateItemProposal {
			return rec.IsCreator
		}
		return rec.IsCreator || rec.IsVoter || rec.IsProjectOwner
	default:
		return true
	}
}

type PreferenceFilter interface {
	// FilterRecipients keeps the recipients whose notification mode admits
	// the event, resolving modes cache-first with one batched query for
	// the remainder.
	FilterRecipients(ctx context.Context, recipients []Recipient, projectID, eventType string) ([]Recipient, error)
}

type preferenceFilter struct {
	cache    cache.Cache
	settings repository.NotificationSettingsRepository
}

func NewPreferenceFilter(c cache.Cache, settings repository.NotificationSettingsRepository) PreferenceFilter {
	return &preferenceFilter{cache: c, settings: settings}
}

func (f *preferenceFilter) FilterRecipients(ctx context.Context, recipients []Recipient, projectID, eventType string) ([]Recipient, error) {
	if len(recipients) == 0 {
		return nil, nil
	}

	modes := make(map[string]string, len(recipients))
	var uncached []string
	for _, rec := range recipients {
		if mode, ok := f.cache.UserSetting(ctx, rec.UserID, projectID); ok {
			modes[rec.UserID] = mode
		} else {
			uncached = append(uncached, rec.UserID)
		}
	}

	if len(uncached) > 0 {
		stored, err := f.settings.GetBatch(ctx, uncached, projectID)
		if err != nil {
			return nil, fmt.Errorf("load notification settings: %w", err)
		}
		for _, userID := range uncached {
			mode, ok := stored[userID]
			if !ok {
				mode = models.DefaultNotificationMode
			}
			modes[userID] = mode
			f.cache.SetUserSetting(ctx, userID, projectID, mode)
		}
	}

	var delivered []Recipient
	for _, rec := range recipients {
		if ShouldDeliver(modes[rec.UserID], eventType, rec) {
			delivered = append(delivered, rec)
		}
	}
	return delivered, nil
}
