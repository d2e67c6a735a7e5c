package repository

import (
	"collab_service/internal/database/redis"
	"collab_service/internal/models"
	"context"
	"fmt"
	"time"

	redis_v9 "github.com/redis/go-redis/v9"
)

// DecisionCacheRepository holds resolved permission decisions, one
// Redis hash per actor so a single DEL drops everything the actor has
// cached. Entries carry a TTL as a backstop; the authoritative
// invalidation path is the grant event consumer.
type DecisionCacheRepository struct {
	client *redis_v9.Client
	ttl    time.Duration
}

func NewDecisionCacheRepository(ttl time.Duration) *DecisionCacheRepository {
	return &DecisionCacheRepository{
		client: redis.Redis_Client,
		ttl:    ttl,
	}
}

func actorKey(actorID string) string {
	return "perm:" + actorID
}

func decisionField(resourceType models.ResourceType, resourceID string, action models.PermissionAction) string {
	return fmt.Sprintf("%s:%s:%s", resourceType, resourceID, action)
}

// Get returns (decision, found). Cache errors surface as a miss; the
// resolver falls through to a live evaluation.
func (c *DecisionCacheRepository) Get(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string, action models.PermissionAction) (bool, bool) {
	val, err := c.client.HGet(ctx, actorKey(actorID), decisionField(resourceType, resourceID, action)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (c *DecisionCacheRepository) Set(ctx context.Context, actorID string, resourceType models.ResourceType, resourceID string, action models.PermissionAction, granted bool) error {
	key := actorKey(actorID)
	val := "0"
	if granted {
		val = "1"
	}

	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, decisionField(resourceType, resourceID, action), val)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("error caching permission decision: %w", err)
	}
	return nil
}

// InvalidateActor drops every cached decision for one actor.
func (c *DecisionCacheRepository) InvalidateActor(ctx context.Context, actorID string) error {
	if err := c.client.Del(ctx, actorKey(actorID)).Err(); err != nil {
		return fmt.Errorf("error invalidating decisions for actor %s: %w", actorID, err)
	}
	return nil
}

// InvalidateAll flushes every cached decision. This is the fail-closed
// path for dropped or unreadable propagation events: re-fetch rather
// than trust a possibly stale cache.
func (c *DecisionCacheRepository) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, actorKey("*"), 100).Result()
		if err != nil {
			return fmt.Errorf("error scanning decision cache: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("error flushing decision cache: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
