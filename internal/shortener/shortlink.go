// Package shortener holds the short-link domain: the link model, its
// validation rules, and the Shorten/Resolve service.
package shortener

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a token has no live link behind it. Expired
// links and links that never existed are indistinguishable to callers.
var ErrNotFound = errors.New("short link not found")

// ValidationError reports a rejected input field. It is never retried and
// maps to a client error at the HTTP boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ShortLink maps a token to its destination URL for a bounded lifetime.
type ShortLink struct {
	Token     string    `bson:"token"`
	URL       string    `bson:"url"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// Active reports whether the link may still be served at the given instant.
func (l *ShortLink) Active(now time.Time) bool {
	return l.ExpiresAt.After(now)
}

// Remaining returns the lifetime left at the given instant. It is only
// meaningful for active links.
func (l *ShortLink) Remaining(now time.Time) time.Duration {
	return l.ExpiresAt.Sub(now)
}
