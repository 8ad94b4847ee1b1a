package token_test

import (
	"context"
	"testing"

	"github.com/serroba/shortener-go/internal/joblock"
	"github.com/serroba/shortener-go/internal/store"
	"github.com/serroba/shortener-go/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReplenisher(t *testing.T, pool token.PoolRepository, queue token.TokenQueue, guard joblock.Guard) *token.Replenisher {
	t.Helper()

	return token.NewReplenisher(newTestBuilder(t), pool, queue, guard, token.ReplenisherConfig{
		LowWaterMark:    50,
		ExtendBatchSize: 20,
		Parallelism:     10,
	}, zap.NewNop())
}

func TestReplenisher_Run(t *testing.T) {
	t.Run("fills an empty pool past the low-water mark", func(t *testing.T) {
		pool := store.NewMemoryPool()
		queue := store.NewMemoryQueue()

		replenisher := newTestReplenisher(t, pool, queue, joblock.NewMemoryGuard())

		require.NoError(t, replenisher.Run(context.Background()))

		unused, err := pool.CountUnused(context.Background())
		require.NoError(t, err)
		// lowWaterMark - 0 + extendBatchSize, minus any collision skips.
		assert.Greater(t, unused, int64(50))
		assert.LessOrEqual(t, unused, int64(70))
	})

	t.Run("pushes generated tokens onto the ready queue", func(t *testing.T) {
		pool := store.NewMemoryPool()
		queue := store.NewMemoryQueue()

		replenisher := newTestReplenisher(t, pool, queue, joblock.NewMemoryGuard())

		require.NoError(t, replenisher.Run(context.Background()))

		tok, err := queue.Pop(context.Background())
		require.NoError(t, err)

		exists, err := pool.Exists(context.Background(), tok)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("does nothing when the pool is above the mark", func(t *testing.T) {
		pool := store.NewMemoryPool()
		queue := store.NewMemoryQueue()

		replenisher := newTestReplenisher(t, pool, queue, joblock.NewMemoryGuard())
		require.NoError(t, replenisher.Run(context.Background()))

		before, err := pool.CountUnused(context.Background())
		require.NoError(t, err)

		require.NoError(t, replenisher.Run(context.Background()))

		after, err := pool.CountUnused(context.Background())
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("skips when the seed job is already locked", func(t *testing.T) {
		pool := store.NewMemoryPool()
		queue := store.NewMemoryQueue()
		guard := joblock.NewMemoryGuard()

		acquired, err := guard.TryAcquire(context.Background(), token.SeedJobName)
		require.NoError(t, err)
		require.True(t, acquired)

		replenisher := newTestReplenisher(t, pool, queue, guard)

		// A locked run is a skip, not an error, and performs no insertions.
		require.NoError(t, replenisher.Run(context.Background()))

		unused, err := pool.CountUnused(context.Background())
		require.NoError(t, err)
		assert.Zero(t, unused)
	})

	t.Run("releases the lock after a run", func(t *testing.T) {
		pool := store.NewMemoryPool()
		queue := store.NewMemoryQueue()
		guard := joblock.NewMemoryGuard()

		replenisher := newTestReplenisher(t, pool, queue, guard)
		require.NoError(t, replenisher.Run(context.Background()))

		acquired, err := guard.TryAcquire(context.Background(), token.SeedJobName)
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("tops up a partially drained pool", func(t *testing.T) {
		pool := store.NewMemoryPool()
		queue := store.NewMemoryQueue()

		for _, tok := range []string{"used1", "used2"} {
			require.NoError(t, pool.Insert(context.Background(), token.PooledToken{Token: tok, Used: true}))
		}

		replenisher := newTestReplenisher(t, pool, queue, joblock.NewMemoryGuard())
		require.NoError(t, replenisher.Run(context.Background()))

		unused, err := pool.CountUnused(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, unused, int64(50))
	})
}
