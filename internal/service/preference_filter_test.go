package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sievehub/internal/cache"
	"sievehub/internal/models"
)

// --- MOCK SETTINGS REPOSITORY ---

type MockSettingsRepo struct {
	mock.Mock
}

func (m *MockSettingsRepo) Get(ctx context.Context, userID, projectID string) (*models.ProjectNotificationSetting, error) {
	args := m.Called(ctx, userID, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProjectNotificationSetting), args.Error(1)
}

func (m *MockSettingsRepo) GetBatch(ctx context.Context, userIDs []string, projectID string) (map[string]string, error) {
	args := m.Called(ctx, userIDs, projectID)
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockSettingsRepo) Upsert(ctx context.Context, userID, projectID, mode string) error {
	args := m.Called(ctx, userID, projectID, mode)
	return args.Error(0)
}

// --- SHOULD-DELIVER MATRIX ---

func roleCombos() []Recipient {
	var combos []Recipient
	for i := 0; i < 8; i++ {
		combos = append(combos, Recipient{
			UserID:         "u",
			IsCreator:      i&1 != 0,
			IsVoter:        i&2 != 0,
			IsProjectOwner: i&4 != 0,
		})
	}
	return combos
}

func TestShouldDeliverMuted(t *testing.T) {
	for _, eventType := range models.EventTypes {
		for _, rec := range roleCombos() {
			assert.False(t, ShouldDeliver(models.ModeMuted, eventType, rec),
				"muted must never deliver (event=%s roles=%+v)", eventType, rec)
		}
	}
}

func TestShouldDeliverAllEvents(t *testing.T) {
	for _, eventType := range models.EventTypes {
		for _, rec := range roleCombos() {
			assert.True(t, ShouldDeliver(models.ModeAllEvents, eventType, rec),
				"all_events must always deliver (event=%s roles=%+v)", eventType, rec)
		}
	}
}

func TestShouldDeliverMyContributions(t *testing.T) {
	for _, eventType := range models.EventTypes {
		for _, rec := range roleCombos() {
			got := ShouldDeliver(models.ModeMyContributions, eventType, rec)
			var want bool
			if eventType == models.EventCreateItemProposal {
				// owner role is intentionally insufficient here
				want = rec.IsCreator
			} else {
				want = rec.IsCreator || rec.IsVoter || rec.IsProjectOwner
			}
			assert.Equal(t, want, got, "event=%s roles=%+v", eventType, rec)
		}
	}
}

func TestShouldDeliverUnknownModeFailsOpen(t *testing.T) {
	for _, mode := range []string{"", "everything", "MUTED"} {
		assert.True(t, ShouldDeliver(mode, models.EventCreateProposal, Recipient{UserID: "u"}),
			"mode=%q", mode)
	}
}

// --- FILTER RECIPIENTS ---

func TestFilterRecipientsBatchesUncachedLookups(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory(10, time.Minute)
	c.SetUserSetting(ctx, "cached", "p1", models.ModeMuted)

	repo := new(MockSettingsRepo)
	repo.On("GetBatch", mock.Anything, []string{"u1", "u2"}, "p1").
		Return(map[string]string{"u1": models.ModeAllEvents}, nil).Once()

	f := NewPreferenceFilter(c, repo)
	recipients := []Recipient{
		{UserID: "cached"},
		{UserID: "u1"},
		{UserID: "u2", IsVoter: true},
	}
	delivered, err := f.FilterRecipients(ctx, recipients, "p1", models.EventItemProposalSupported)
	require.NoError(t, err)

	// cached=muted dropped, u1=all_events kept, u2 defaults to
	// my_contributions and is a voter
	require.Len(t, delivered, 2)
	assert.Equal(t, "u1", delivered[0].UserID)
	assert.Equal(t, "u2", delivered[1].UserID)
	repo.AssertExpectations(t)

	// the miss got backfilled
	mode, ok := c.UserSetting(ctx, "u2", "p1")
	require.True(t, ok)
	assert.Equal(t, models.DefaultNotificationMode, mode)
}

func TestFilterRecipientsAllCachedSkipsDB(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory(10, time.Minute)
	c.SetUserSetting(ctx, "u1", "p1", models.ModeAllEvents)

	repo := new(MockSettingsRepo)
	f := NewPreferenceFilter(c, repo)

	delivered, err := f.FilterRecipients(ctx, []Recipient{{UserID: "u1"}}, "p1", models.EventProposalPass)
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	repo.AssertNotCalled(t, "GetBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestFilterRecipientsErrorPropagates(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory(10, time.Minute)

	repo := new(MockSettingsRepo)
	repo.On("GetBatch", mock.Anything, mock.Anything, mock.Anything).
		Return(map[string]string{}, fmt.Errorf("connection refused"))

	f := NewPreferenceFilter(c, repo)
	_, err := f.FilterRecipients(ctx, []Recipient{{UserID: "u1"}}, "p1", models.EventProposalPass)
	assert.Error(t, err)
}
