package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-bot/internal/domain"
)

// DefaultKeyPrefix namespaces member entries in a shared Redis.
const DefaultKeyPrefix = "helpdesk:member:"

type redisMemberCache struct {
	client redis.Cmdable
	prefix string
}

// NewRedisMemberCache creates a MemberCache backed by Redis.
func NewRedisMemberCache(client redis.Cmdable, prefix string) MemberCache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &redisMemberCache{client: client, prefix: prefix}
}

func (c *redisMemberCache) Get(ctx context.Context, objectID string) (*domain.MemberProfile, bool, error) {
	raw, err := c.client.Get(ctx, c.key(objectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", objectID, err)
	}

	var profile domain.MemberProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = c.client.Del(ctx, c.key(objectID)).Err()
		return nil, false, nil
	}
	return &profile, true, nil
}

func (c *redisMemberCache) Set(ctx context.Context, profile domain.MemberProfile, ttl time.Duration) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(profile.ObjectID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", profile.ObjectID, err)
	}
	return nil
}

func (c *redisMemberCache) Invalidate(ctx context.Context, objectID string) error {
	if err := c.client.Del(ctx, c.key(objectID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", objectID, err)
	}
	return nil
}

func (c *redisMemberCache) key(objectID string) string {
	return c.prefix + objectID
}
