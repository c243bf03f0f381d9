package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryMissThenHit(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)

	_, ok := c.UserSetting(ctx, "u1", "p1")
	assert.False(t, ok)

	c.SetUserSetting(ctx, "u1", "p1", "all_events")
	mode, ok := c.UserSetting(ctx, "u1", "p1")
	require.True(t, ok)
	assert.Equal(t, "all_events", mode)
}

func TestMemoryNamespacesAreIndependent(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)

	c.SetProjectOwner(ctx, "p1", "owner-1")
	_, ok := c.UserSetting(ctx, "p1", "p1")
	assert.False(t, ok)

	owner, ok := c.ProjectOwner(ctx, "p1")
	require.True(t, ok)
	assert.Equal(t, "owner-1", owner)
}

func TestMemoryContributors(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)

	c.SetItemProposalContributors(ctx, "ip1", Contributors{
		Creator: "u1",
		Voters:  []string{"u2", "u3"},
	})
	contrib, ok := c.ItemProposalContributors(ctx, "ip1")
	require.True(t, ok)
	assert.Equal(t, "u1", contrib.Creator)
	assert.Equal(t, []string{"u2", "u3"}, contrib.Voters)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, 20*time.Millisecond)

	c.SetProjectOwner(ctx, "p1", "owner-1")
	_, ok := c.ProjectOwner(ctx, "p1")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	_, ok = c.ProjectOwner(ctx, "p1")
	assert.False(t, ok)
}

func TestMemoryCapacityEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Minute)

	c.SetProjectOwner(ctx, "p1", "o1")
	c.SetProjectOwner(ctx, "p2", "o2")
	c.SetProjectOwner(ctx, "p3", "o3")

	// oldest entry is gone, cache stays bounded
	_, ok1 := c.ProjectOwner(ctx, "p1")
	_, ok3 := c.ProjectOwner(ctx, "p3")
	assert.False(t, ok1)
	assert.True(t, ok3)
}

func TestMemoryInvalidateUserSettings(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)

	c.SetUserSetting(ctx, "u1", "p1", "muted")
	c.SetUserSetting(ctx, "u2", "p1", "all_events")
	c.SetUserSetting(ctx, "u1", "p2", "muted")

	c.InvalidateUserSettings(ctx, "p1")

	_, ok := c.UserSetting(ctx, "u1", "p1")
	assert.False(t, ok)
	_, ok = c.UserSetting(ctx, "u2", "p1")
	assert.False(t, ok)

	// other projects untouched
	mode, ok := c.UserSetting(ctx, "u1", "p2")
	require.True(t, ok)
	assert.Equal(t, "muted", mode)
}
