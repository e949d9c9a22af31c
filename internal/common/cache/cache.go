package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"luvrix-giveaway-engine/internal/platform/redis"
)

// ErrMiss is returned when the key is absent.
var ErrMiss = errors.New("cache miss")

type CacheService struct {
	redisClient redis.RedisClient
	prefix      string
}

func NewCacheService(redisClient redis.RedisClient, prefix string) *CacheService {
	return &CacheService{
		redisClient: redisClient,
		prefix:      prefix,
	}
}

func (c *CacheService) key(k string) string {
	return c.prefix + k
}

// GetRaw returns the stored bytes or ErrMiss
func (c *CacheService) GetRaw(ctx context.Context, key string) ([]byte, error) {
	data, err := c.redisClient.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return data, nil
}

// SetRaw stores an already encoded value
func (c *CacheService) SetRaw(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.redisClient.Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes keys
func (c *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.redisClient.Del(ctx, full...).Err()
}
