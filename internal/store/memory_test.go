package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/serroba/shortener-go/internal/shortener"
	"github.com/serroba/shortener-go/internal/store"
	"github.com/serroba/shortener-go/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPool(t *testing.T) {
	t.Run("rejects duplicate tokens", func(t *testing.T) {
		pool := store.NewMemoryPool()

		require.NoError(t, pool.Insert(context.Background(), token.PooledToken{Token: "abc"}))

		err := pool.Insert(context.Background(), token.PooledToken{Token: "abc"})

		assert.ErrorIs(t, err, token.ErrDuplicateToken)
	})

	t.Run("counts only unused tokens", func(t *testing.T) {
		pool := store.NewMemoryPool()

		require.NoError(t, pool.Insert(context.Background(), token.PooledToken{Token: "a"}))
		require.NoError(t, pool.Insert(context.Background(), token.PooledToken{Token: "b"}))
		require.NoError(t, pool.Insert(context.Background(), token.PooledToken{Token: "c", Used: true}))

		count, err := pool.CountUnused(context.Background())

		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("mark used keeps the first used_at", func(t *testing.T) {
		pool := store.NewMemoryPool()
		require.NoError(t, pool.Insert(context.Background(), token.PooledToken{Token: "a"}))

		first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, pool.MarkUsed(context.Background(), "a", first))
		require.NoError(t, pool.MarkUsed(context.Background(), "a", first.Add(time.Hour)))

		count, err := pool.CountUnused(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("mark used on an unknown token is a no-op", func(t *testing.T) {
		pool := store.NewMemoryPool()

		assert.NoError(t, pool.MarkUsed(context.Background(), "missing", time.Now()))
	})
}

func TestMemoryQueue(t *testing.T) {
	t.Run("pops in push order", func(t *testing.T) {
		queue := store.NewMemoryQueue()

		require.NoError(t, queue.Push(context.Background(), "first"))
		require.NoError(t, queue.Push(context.Background(), "second"))

		tok, err := queue.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "first", tok)

		tok, err = queue.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "second", tok)
	})

	t.Run("reports an empty queue", func(t *testing.T) {
		queue := store.NewMemoryQueue()

		_, err := queue.Pop(context.Background())

		assert.ErrorIs(t, err, token.ErrQueueEmpty)
	})
}

func TestMemoryLinks(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("find by token", func(t *testing.T) {
		links := store.NewMemoryLinks()
		require.NoError(t, links.Upsert(context.Background(), &shortener.ShortLink{
			Token:     "abc",
			URL:       "https://example.com",
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))

		link, err := links.FindByToken(context.Background(), "abc")

		require.NoError(t, err)
		assert.Equal(t, "https://example.com", link.URL)
	})

	t.Run("find by token returns not found", func(t *testing.T) {
		links := store.NewMemoryLinks()

		_, err := links.FindByToken(context.Background(), "missing")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("find active by url skips expired links", func(t *testing.T) {
		links := store.NewMemoryLinks()
		require.NoError(t, links.Upsert(context.Background(), &shortener.ShortLink{
			Token:     "old",
			URL:       "https://example.com",
			CreatedAt: now.Add(-2 * time.Hour),
			ExpiresAt: now.Add(-time.Hour),
		}))

		_, err := links.FindActiveByURL(context.Background(), "https://example.com", now)
		assert.ErrorIs(t, err, shortener.ErrNotFound)

		require.NoError(t, links.Upsert(context.Background(), &shortener.ShortLink{
			Token:     "fresh",
			URL:       "https://example.com",
			CreatedAt: now,
			ExpiresAt: now.Add(time.Hour),
		}))

		link, err := links.FindActiveByURL(context.Background(), "https://example.com", now)
		require.NoError(t, err)
		assert.Equal(t, "fresh", link.Token)
	})

	t.Run("upsert replaces the row for a token", func(t *testing.T) {
		links := store.NewMemoryLinks()
		require.NoError(t, links.Upsert(context.Background(), &shortener.ShortLink{
			Token:     "abc",
			URL:       "https://example.com",
			ExpiresAt: now.Add(time.Hour),
		}))
		require.NoError(t, links.Upsert(context.Background(), &shortener.ShortLink{
			Token:     "abc",
			URL:       "https://example.com",
			ExpiresAt: now.Add(2 * time.Hour),
		}))

		link, err := links.FindByToken(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, now.Add(2*time.Hour), link.ExpiresAt)
	})
}

func TestMemoryLinkCache(t *testing.T) {
	t.Run("returns cached urls until the ttl passes", func(t *testing.T) {
		cache := store.NewMemoryLinkCache()

		require.NoError(t, cache.SetWithTTL(context.Background(), "abc", "https://example.com", 50*time.Millisecond))

		url, err := cache.Get(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com", url)

		time.Sleep(60 * time.Millisecond)

		_, err = cache.Get(context.Background(), "abc")
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("misses on unknown tokens", func(t *testing.T) {
		cache := store.NewMemoryLinkCache()

		_, err := cache.Get(context.Background(), "missing")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("evict drops the entry", func(t *testing.T) {
		cache := store.NewMemoryLinkCache()
		require.NoError(t, cache.SetWithTTL(context.Background(), "abc", "https://example.com", time.Hour))

		cache.Evict("abc")

		_, err := cache.Get(context.Background(), "abc")
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}
