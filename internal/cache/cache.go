// Package cache holds the advisory lookup cache in front of the
// notification hot path. It is read-through by callers: a miss means
// "absent" and the caller queries the source of truth, then writes the
// result back. Correctness never depends on a hit — entries can vanish
// early under capacity pressure or TTL expiry, and every caller keeps a
// fallback query.
package cache

import (
	"context"
	"time"
)

// Contributors is the cached audience of an item proposal.
type Contributors struct {
	Creator string   `json:"creator"`
	Voters  []string `json:"voters"`
}

// Cache exposes three independent namespaces. Implementations never return
// errors: any backend failure reads as a miss and writes are best-effort.
type Cache interface {
	// UserSetting is the stored notification mode for (user, project).
	UserSetting(ctx context.Context, userID, projectID string) (string, bool)
	SetUserSetting(ctx context.Context, userID, projectID, mode string)

	// ProjectOwner maps a project to its owning user.
	ProjectOwner(ctx context.Context, projectID string) (string, bool)
	SetProjectOwner(ctx context.Context, projectID, ownerID string)

	// ItemProposalContributors maps an item proposal to its creator and
	// distinct voters.
	ItemProposalContributors(ctx context.Context, itemProposalID string) (Contributors, bool)
	SetItemProposalContributors(ctx context.Context, itemProposalID string, c Contributors)

	// InvalidateUserSettings drops every cached setting belonging to the
	// project, used after a bulk preference change.
	InvalidateUserSettings(ctx context.Context, projectID string)
}

// Defaults for the tuning knobs. These are latency knobs, not contracts.
const (
	DefaultTTL      = 3 * time.Minute
	DefaultCapacity = 500
)
