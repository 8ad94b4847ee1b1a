package shortener

import (
	"context"
	"time"
)

// Repository is the authoritative short-link store.
//
// FindActiveByURL returns ErrNotFound when no link for the URL is still
// alive at the given instant. Upsert is keyed by token and replaces any
// existing row for it.
type Repository interface {
	FindByToken(ctx context.Context, token string) (*ShortLink, error)
	FindActiveByURL(ctx context.Context, url string, now time.Time) (*ShortLink, error)
	Upsert(ctx context.Context, link *ShortLink) error
}

// LinkCache is the token→URL fast path. It is a disposable projection of
// the repository: both operations may fail without failing the request.
type LinkCache interface {
	Get(ctx context.Context, token string) (string, error)
	SetWithTTL(ctx context.Context, token, url string, ttl time.Duration) error
}

// TokenSource supplies globally unique tokens for new links.
type TokenSource interface {
	Issue(ctx context.Context) (string, error)
}
