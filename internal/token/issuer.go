package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serroba/shortener-go/internal/messaging"
	"go.uber.org/zap"
)

// maxGenerateAttempts bounds the collision re-roll loop on the direct
// generation path. The random suffix makes more than a couple of rounds
// vanishingly unlikely; hitting the bound signals a broken random source.
const maxGenerateAttempts = 5

// ErrExhausted is returned when a unique token could not be produced
// within the attempt budget.
var ErrExhausted = errors.New("token generation attempts exhausted")

// Issuer hands out globally unique tokens. The fast path pops a
// pre-generated token from the ready queue; when the queue is empty (or
// unreachable) it falls back to generating one on the spot against the
// pool ledger.
type Issuer struct {
	builder     *Builder
	pool        PoolRepository
	queue       TokenQueue
	publishUsed messaging.Publish[TokenUsedEvent]
	logger      *zap.Logger
	now         func() time.Time
}

// NewIssuer creates a token issuer.
func NewIssuer(
	builder *Builder,
	pool PoolRepository,
	queue TokenQueue,
	publishUsed messaging.Publish[TokenUsedEvent],
	logger *zap.Logger,
) *Issuer {
	return &Issuer{
		builder:     builder,
		pool:        pool,
		queue:       queue,
		publishUsed: publishUsed,
		logger:      logger,
		now:         time.Now,
	}
}

// Issue returns a token that has never been handed out before.
//
// Tokens from the queue are already out of circulation once popped; the
// ledger update travels as a best-effort event so a publish failure can
// never surface to the caller.
func (i *Issuer) Issue(ctx context.Context) (string, error) {
	tok, err := i.queue.Pop(ctx)
	if err == nil {
		i.markUsed(tok)

		return tok, nil
	}

	if !errors.Is(err, ErrQueueEmpty) {
		// Queue trouble costs latency, not correctness: fall through to
		// direct generation.
		i.logger.Warn("token queue unavailable, generating directly", zap.Error(err))
	}

	return i.generate(ctx)
}

func (i *Issuer) markUsed(tok string) {
	event := &TokenUsedEvent{
		Token:  tok,
		UsedAt: i.now(),
	}

	if err := i.publishUsed(event); err != nil {
		i.logger.Error("failed to publish token used event",
			zap.String("token", tok),
			zap.Error(err),
		)
	}
}

// generate builds candidates until one survives the uniqueness checks,
// inserting it as already used so it never enters the unused pool.
func (i *Issuer) generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		tok := i.builder.Token()

		exists, err := i.pool.Exists(ctx, tok)
		if err != nil {
			return "", fmt.Errorf("check token existence: %w", err)
		}

		if exists {
			continue
		}

		usedAt := i.now()

		err = i.pool.Insert(ctx, PooledToken{
			Token:     tok,
			CreatedAt: usedAt,
			Used:      true,
			UsedAt:    &usedAt,
		})
		if errors.Is(err, ErrDuplicateToken) {
			// Lost an insert race; re-roll.
			i.logger.Info("token collision on direct generation", zap.String("token", tok))

			continue
		}

		if err != nil {
			return "", fmt.Errorf("persist generated token: %w", err)
		}

		return tok, nil
	}

	return "", ErrExhausted
}
