package insight

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cooldownKey = "insight:cooldown"

// RedisCache backs the insight cache with redis so the cooldown flag and
// cached commentary survive restarts and are shared across instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

var _ Cache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) CooldownActive(ctx context.Context) (bool, error) {
	n, err := c.client.Exists(ctx, cooldownKey).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *RedisCache) ArmCooldown(ctx context.Context, ttl time.Duration) error {
	return c.client.Set(ctx, cooldownKey, "1", ttl).Err()
}
