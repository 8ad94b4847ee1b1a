//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortener-go/internal/shortener"
	"github.com/serroba/shortener-go/internal/store"
	"github.com/serroba/shortener-go/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: getRedisAddr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	return client
}

func TestRedisTokenQueueIntegration(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	queue := store.NewRedisTokenQueue(client)
	t.Cleanup(func() { client.Del(ctx, "token_pool") })

	t.Run("pops in push order", func(t *testing.T) {
		require.NoError(t, queue.Push(ctx, "tok-one"))
		require.NoError(t, queue.Push(ctx, "tok-two"))

		tok, err := queue.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-one", tok)

		tok, err = queue.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok-two", tok)
	})

	t.Run("empty queue yields ErrQueueEmpty", func(t *testing.T) {
		_, err := queue.Pop(ctx)

		assert.ErrorIs(t, err, token.ErrQueueEmpty)
	})
}

func TestRedisLinkCacheIntegration(t *testing.T) {
	client := newRedisClient(t)
	ctx := context.Background()

	cache := store.NewRedisLinkCache(client)

	t.Run("set and get with ttl", func(t *testing.T) {
		require.NoError(t, cache.SetWithTTL(ctx, "inttest1", "https://example.com", time.Minute))

		url, err := cache.Get(ctx, "inttest1")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", url)

		ttl, err := client.TTL(ctx, "link:inttest1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)

		client.Del(ctx, "link:inttest1")
	})

	t.Run("entries disappear with the ttl", func(t *testing.T) {
		require.NoError(t, cache.SetWithTTL(ctx, "inttest2", "https://example.com", 100*time.Millisecond))

		time.Sleep(150 * time.Millisecond)

		_, err := cache.Get(ctx, "inttest2")
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("miss on unknown token", func(t *testing.T) {
		_, err := cache.Get(ctx, "nonexistent")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}
