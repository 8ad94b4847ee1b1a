package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortener-go/internal/shortener"
)

// RedisLinkCache is the Redis token→URL cache. Entries carry a TTL equal
// to the link's remaining lifetime, so the cache can never serve a URL
// past its authoritative expiry.
type RedisLinkCache struct {
	client *redis.Client
	prefix string
}

// NewRedisLinkCache creates a Redis-backed link cache.
func NewRedisLinkCache(client *redis.Client) *RedisLinkCache {
	return &RedisLinkCache{
		client: client,
		prefix: "link:",
	}
}

func (c *RedisLinkCache) Get(ctx context.Context, token string) (string, error) {
	url, err := c.client.Get(ctx, c.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", shortener.ErrNotFound
		}

		return "", err
	}

	return url, nil
}

func (c *RedisLinkCache) SetWithTTL(ctx context.Context, token, url string, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+token, url, ttl).Err()
}

var _ shortener.LinkCache = (*RedisLinkCache)(nil)
