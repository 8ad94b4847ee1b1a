package token

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/serroba/shortener-go/internal/joblock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SeedJobName is the lock name guarding replenishment runs.
const SeedJobName = "token-seed"

// DefaultParallelism caps how many generate+insert operations are in
// flight during one replenishment batch.
const DefaultParallelism = 10

// ReplenisherConfig sizes the token pool.
type ReplenisherConfig struct {
	// LowWaterMark is the unused-token count below which a run generates
	// a new batch.
	LowWaterMark int64
	// ExtendBatchSize is generated on top of the shortfall so the pool
	// overshoots the mark instead of landing exactly on it.
	ExtendBatchSize int64
	// Parallelism bounds in-flight generation; DefaultParallelism if zero.
	Parallelism int
}

// Replenisher keeps the unused token pool above its low-water mark. Runs
// are guarded by a named lock so overlapping scheduler ticks skip instead
// of double-generating.
type Replenisher struct {
	builder *Builder
	pool    PoolRepository
	queue   TokenQueue
	guard   joblock.Guard
	config  ReplenisherConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewReplenisher creates a pool replenisher.
func NewReplenisher(
	builder *Builder,
	pool PoolRepository,
	queue TokenQueue,
	guard joblock.Guard,
	config ReplenisherConfig,
	logger *zap.Logger,
) *Replenisher {
	if config.Parallelism <= 0 {
		config.Parallelism = DefaultParallelism
	}

	return &Replenisher{
		builder: builder,
		pool:    pool,
		queue:   queue,
		guard:   guard,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes one replenishment pass. A run that finds the job already
// locked returns nil immediately; that is the normal overlap skip, not a
// failure.
func (r *Replenisher) Run(ctx context.Context) error {
	acquired, err := r.guard.TryAcquire(ctx, SeedJobName)
	if err != nil {
		return err
	}

	if !acquired {
		r.logger.Info("seed job already running, skipping")

		return nil
	}

	defer func() {
		if err := r.guard.Release(context.WithoutCancel(ctx), SeedJobName); err != nil {
			r.logger.Error("failed to release seed job lock", zap.Error(err))
		}
	}()

	unused, err := r.pool.CountUnused(ctx)
	if err != nil {
		return err
	}

	if unused >= r.config.LowWaterMark {
		r.logger.Debug("token pool healthy",
			zap.Int64("unused", unused),
			zap.Int64("lowWaterMark", r.config.LowWaterMark),
		)

		return nil
	}

	toGenerate := r.config.LowWaterMark - unused + r.config.ExtendBatchSize

	r.logger.Info("replenishing token pool",
		zap.Int64("unused", unused),
		zap.Int64("generating", toGenerate),
	)

	generated := r.generateBatch(ctx, toGenerate)

	r.logger.Info("token pool replenished",
		zap.Int64("requested", toGenerate),
		zap.Int64("inserted", generated),
	)

	return nil
}

// generateBatch inserts up to n fresh unused tokens with bounded
// parallelism and returns how many made it into the ledger. Individual
// failures, including duplicate-key rejections from racing generations,
// are logged and skipped; the next run tops the pool up again.
func (r *Replenisher) generateBatch(ctx context.Context, n int64) int64 {
	var inserted atomic.Int64

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.config.Parallelism)

	for i := int64(0); i < n; i++ {
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			tok := r.builder.Token()

			err := r.pool.Insert(ctx, PooledToken{
				Token:     tok,
				CreatedAt: r.now(),
				Used:      false,
			})
			if errors.Is(err, ErrDuplicateToken) {
				r.logger.Info("token collision during replenishment", zap.String("token", tok))

				return nil
			}

			if err != nil {
				r.logger.Error("failed to insert pooled token", zap.Error(err))

				return nil
			}

			inserted.Add(1)

			if err := r.queue.Push(ctx, tok); err != nil {
				// The token stays claimable through the ledger fallback.
				r.logger.Warn("failed to enqueue pooled token",
					zap.String("token", tok),
					zap.Error(err),
				)
			}

			return nil
		})
	}

	_ = group.Wait()

	return inserted.Load()
}
