package joblock

import (
	"context"
	"sync"
)

// MemoryGuard is a process-local Guard. It is sufficient when a single
// scheduler instance owns the job.
type MemoryGuard struct {
	mu     sync.Mutex
	locked map[string]bool
}

// NewMemoryGuard creates an in-process lock guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		locked: make(map[string]bool),
	}
}

func (g *MemoryGuard) TryAcquire(_ context.Context, name string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.locked[name] {
		return false, nil
	}

	g.locked[name] = true

	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.locked, name)

	return nil
}

var _ Guard = (*MemoryGuard)(nil)
