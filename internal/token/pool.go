package token

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateToken is returned by PoolRepository.Insert when the token
// value already exists in the ledger.
var ErrDuplicateToken = errors.New("token already exists")

// ErrQueueEmpty is returned by TokenQueue.Pop when no pre-generated token
// is available.
var ErrQueueEmpty = errors.New("token queue is empty")

// PooledToken is one entry in the token ledger. Rows are never deleted;
// used rows serve as the negative-uniqueness record for future generations.
type PooledToken struct {
	Token     string     `bson:"token"`
	CreatedAt time.Time  `bson:"created_at"`
	Used      bool       `bson:"used"`
	UsedAt    *time.Time `bson:"used_at,omitempty"`
}

// PoolRepository is the persistent token ledger.
//
// Insert must enforce uniqueness on the token value and return
// ErrDuplicateToken on a collision. MarkUsed is idempotent: marking an
// already-used token succeeds without effect.
type PoolRepository interface {
	Insert(ctx context.Context, t PooledToken) error
	CountUnused(ctx context.Context) (int64, error)
	Exists(ctx context.Context, token string) (bool, error)
	MarkUsed(ctx context.Context, token string, at time.Time) error
}

// TokenQueue hands out pre-generated tokens cheaply. It is a disposable
// projection of the unused pool: losing it costs latency, never correctness.
type TokenQueue interface {
	Push(ctx context.Context, token string) error
	Pop(ctx context.Context) (string, error)
}
