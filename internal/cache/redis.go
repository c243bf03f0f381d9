package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	settingsPrefix = "notif:settings:"
	ownerPrefix    = "notif:owner:"
	contribPrefix  = "notif:contrib:"
)

// Redis is the shared Cache backing for multi-process deployments. Every
// backend error degrades to a miss; the cache never propagates failures to
// the notification path.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) UserSetting(ctx context.Context, userID, projectID string) (string, bool) {
	mode, err := r.client.Get(ctx, settingsPrefix+userID+":"+projectID).Result()
	if err != nil {
		return "", false
	}
	return mode, true
}

func (r *Redis) SetUserSetting(ctx context.Context, userID, projectID, mode string) {
	if err := r.client.Set(ctx, settingsPrefix+userID+":"+projectID, mode, r.ttl).Err(); err != nil {
		slog.Debug("cache write failed", "namespace", "settings", "error", err)
	}
}

func (r *Redis) ProjectOwner(ctx context.Context, projectID string) (string, bool) {
	owner, err := r.client.Get(ctx, ownerPrefix+projectID).Result()
	if err != nil {
		return "", false
	}
	return owner, true
}

func (r *Redis) SetProjectOwner(ctx context.Context, projectID, ownerID string) {
	if err := r.client.Set(ctx, ownerPrefix+projectID, ownerID, r.ttl).Err(); err != nil {
		slog.Debug("cache write failed", "namespace", "owner", "error", err)
	}
}

func (r *Redis) ItemProposalContributors(ctx context.Context, itemProposalID string) (Contributors, bool) {
	raw, err := r.client.Get(ctx, contribPrefix+itemProposalID).Bytes()
	if err != nil {
		return Contributors{}, false
	}
	var c Contributors
	if err := json.Unmarshal(raw, &c); err != nil {
		return Contributors{}, false
	}
	return c, true
}

func (r *Redis) SetItemProposalContributors(ctx context.Context, itemProposalID string, c Contributors) {
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, contribPrefix+itemProposalID, raw, r.ttl).Err(); err != nil {
		slog.Debug("cache write failed", "namespace", "contributors", "error", err)
	}
}

func (r *Redis) InvalidateUserSettings(ctx context.Context, projectID string) {
	iter := r.client.Scan(ctx, 0, settingsPrefix+"*:"+projectID, 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Debug("cache invalidation failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		slog.Debug("cache invalidation scan failed", "project_id", projectID, "error", err)
	}
}
