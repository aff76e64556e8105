/**
 * @description
 * Redis-backed local mirror of mission records. The mirror exists purely for
 * responsive reads; it is invalidated after every acknowledged write to the
 * authoritative store and is never consulted when making lifecycle or pricing
 * decisions. Cache misses and Redis outages degrade to store reads.
 */

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/fluzio/mission-service/internal/domain"
)

// RedisMissionCache implements MissionCacheStore on a Redis client.
type RedisMissionCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisMissionCache creates a mission mirror with the given key prefix and TTL.
func NewRedisMissionCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisMissionCache {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "fluzio:mission_cache"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &RedisMissionCache{
		client: client,
		prefix: trimmedPrefix,
		ttl:    ttl,
	}
}

func (c *RedisMissionCache) key(missionID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", c.prefix, missionID)
}

// GetMission returns the cached copy, or (nil, nil) on a miss.
func (c *RedisMissionCache) GetMission(ctx context.Context, missionID uuid.UUID) (*domain.Mission, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	raw, err := c.client.Get(ctx, c.key(missionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var mission domain.Mission
	if err := json.Unmarshal(raw, &mission); err != nil {
		// Treat an unreadable entry as a miss and drop it.
		_ = c.client.Del(ctx, c.key(missionID)).Err()
		return nil, nil
	}
	return &mission, nil
}

// PutMission stores a fresh authoritative copy under the mirror's TTL.
func (c *RedisMissionCache) PutMission(ctx context.Context, m *domain.Mission) error {
	if c == nil || c.client == nil || m == nil {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(m.ID), raw, c.ttl).Err()
}

// InvalidateMission drops the mirror entry after an acknowledged store write.
func (c *RedisMissionCache) InvalidateMission(ctx context.Context, missionID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(missionID)).Err()
}
