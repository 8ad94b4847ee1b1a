package joblock_test

import (
	"context"
	"sync"
	"testing"

	"github.com/serroba/shortener-go/internal/joblock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	t.Run("acquires a free lock", func(t *testing.T) {
		guard := joblock.NewMemoryGuard()

		acquired, err := guard.TryAcquire(context.Background(), "job-a")

		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("rejects a second acquire on the same name", func(t *testing.T) {
		guard := joblock.NewMemoryGuard()

		acquired, err := guard.TryAcquire(context.Background(), "job-a")
		require.NoError(t, err)
		require.True(t, acquired)

		acquired, err = guard.TryAcquire(context.Background(), "job-a")
		require.NoError(t, err)
		assert.False(t, acquired)
	})

	t.Run("locks are independent per name", func(t *testing.T) {
		guard := joblock.NewMemoryGuard()

		_, err := guard.TryAcquire(context.Background(), "job-a")
		require.NoError(t, err)

		acquired, err := guard.TryAcquire(context.Background(), "job-b")
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("release makes the name acquirable again", func(t *testing.T) {
		guard := joblock.NewMemoryGuard()

		_, err := guard.TryAcquire(context.Background(), "job-a")
		require.NoError(t, err)
		require.NoError(t, guard.Release(context.Background(), "job-a"))

		acquired, err := guard.TryAcquire(context.Background(), "job-a")
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("release of an unheld lock is a no-op", func(t *testing.T) {
		guard := joblock.NewMemoryGuard()

		assert.NoError(t, guard.Release(context.Background(), "never-locked"))
	})

	t.Run("exactly one concurrent acquire wins", func(t *testing.T) {
		guard := joblock.NewMemoryGuard()

		const attempts = 100

		var (
			wg   sync.WaitGroup
			wins int64
			mu   sync.Mutex
		)

		for i := 0; i < attempts; i++ {
			wg.Add(1)

			go func() {
				defer wg.Done()

				acquired, err := guard.TryAcquire(context.Background(), "job-a")
				if err == nil && acquired {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, int64(1), wins)
	})
}
