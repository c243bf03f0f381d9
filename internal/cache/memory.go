package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is the in-process Cache backing: one bounded expirable LRU per
// namespace. Safe for concurrent use.
type Memory struct {
	settings     *expirable.LRU[string, string]
	owners       *expirable.LRU[string, string]
	contributors *expirable.LRU[string, Contributors]
}

// NewMemory builds a Memory cache. Non-positive capacity or TTL fall back
// to the package defaults.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		settings:     expirable.NewLRU[string, string](capacity, nil, ttl),
		owners:       expirable.NewLRU[string, string](capacity, nil, ttl),
		contributors: expirable.NewLRU[string, Contributors](capacity, nil, ttl),
	}
}

func settingKey(userID, projectID string) string {
	return userID + ":" + projectID
}

func (m *Memory) UserSetting(_ context.Context, userID, projectID string) (string, bool) {
	return m.settings.Get(settingKey(userID, projectID))
}

func (m *Memory) SetUserSetting(_ context.Context, userID, projectID, mode string) {
	m.settings.Add(settingKey(userID, projectID), mode)
}

func (m *Memory) ProjectOwner(_ context.Context, projectID string) (string, bool) {
	return m.owners.Get(projectID)
}

func (m *Memory) SetProjectOwner(_ context.Context, projectID, ownerID string) {
	m.owners.Add(projectID, ownerID)
}

func (m *Memory) ItemProposalContributors(_ context.Context, itemProposalID string) (Contributors, bool) {
	return m.contributors.Get(itemProposalID)
}

func (m *Memory) SetItemProposalContributors(_ context.Context, itemProposalID string, c Contributors) {
	m.contributors.Add(itemProposalID, c)
}

func (m *Memory) InvalidateUserSettings(_ context.Context, projectID string) {
	suffix := ":" + projectID
	for _, key := range m.settings.Keys() {
		if strings.HasSuffix(key, suffix) {
			m.settings.Remove(key)
		}
	}
}
