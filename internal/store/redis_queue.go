package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortener-go/internal/token"
)

// RedisTokenQueue is the Redis list holding pre-generated ready tokens.
// The replenisher pushes to the tail, the issuer pops from the head.
type RedisTokenQueue struct {
	client *redis.Client
	key    string
}

// NewRedisTokenQueue creates a Redis-backed ready-token queue.
func NewRedisTokenQueue(client *redis.Client) *RedisTokenQueue {
	return &RedisTokenQueue{
		client: client,
		key:    "token_pool",
	}
}

func (q *RedisTokenQueue) Push(ctx context.Context, tok string) error {
	return q.client.RPush(ctx, q.key, tok).Err()
}

func (q *RedisTokenQueue) Pop(ctx context.Context) (string, error) {
	tok, err := q.client.LPop(ctx, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", token.ErrQueueEmpty
		}

		return "", err
	}

	return tok, nil
}

var _ token.TokenQueue = (*RedisTokenQueue)(nil)
