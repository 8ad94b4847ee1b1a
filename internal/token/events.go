package token

import (
	"context"
	"time"

	"github.com/serroba/shortener-go/internal/messaging"
)

// TopicTokenUsed carries bookkeeping events for tokens handed out from the
// ready queue. Marking is best-effort: the pop already removed the token
// from circulation, so the ledger update is audit state, not a uniqueness
// guard.
const TopicTokenUsed = "token.used"

// TokenUsedEvent records that a pooled token left the queue.
type TokenUsedEvent struct {
	Token  string    `json:"token"`
	UsedAt time.Time `json:"usedAt"`
}

// NewMarkUsedHandler returns a consumer handler that flips the ledger row
// to used. MarkUsed is idempotent, so redelivery is safe.
func NewMarkUsedHandler(pool PoolRepository) messaging.Handler[TokenUsedEvent] {
	return func(ctx context.Context, event *TokenUsedEvent) error {
		return pool.MarkUsed(ctx, event.Token, event.UsedAt)
	}
}
