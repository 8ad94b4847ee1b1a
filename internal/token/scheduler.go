package token

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Scheduler triggers the replenisher on a fixed interval. One pass runs
// immediately on start so a fresh deployment does not wait a full interval
// for its first pool fill.
type Scheduler struct {
	replenisher *Replenisher
	interval    time.Duration
	logger      *zap.Logger
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewScheduler creates an interval scheduler for the replenisher.
func NewScheduler(replenisher *Replenisher, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		replenisher: replenisher,
		interval:    interval,
		logger:      logger,
		done:        make(chan struct{}),
	}
}

// Start launches the tick loop.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	go s.loop(ctx)

	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if err := s.replenisher.Run(ctx); err != nil {
		s.logger.Error("replenishment run failed", zap.Error(err))
	}
}

// Shutdown cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}

	<-s.done

	return nil
}
