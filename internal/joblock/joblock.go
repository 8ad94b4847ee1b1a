// Package joblock provides named mutual-exclusion guards for recurring
// jobs. A guard protects against overlapping runs of the same job, not
// against concurrent request handling.
package joblock

import "context"

// Guard is a try-acquire/release lock keyed by job name.
//
// TryAcquire returns false when the name is already locked; that is a
// normal skip for the caller, not an error. Release must be safe to call
// even if a competing holder took the lock in between (it only releases
// locks held by this guard instance).
type Guard interface {
	TryAcquire(ctx context.Context, name string) (bool, error)
	Release(ctx context.Context, name string) error
}
