package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/jaevor/go-nanoid"
)

// Alphabet is the base-62 character set tokens are built from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const base = int64(len(Alphabet))

// DefaultSuffixLength is the number of random characters appended to the
// time-derived prefix when no explicit length is configured.
const DefaultSuffixLength = 3

// EncodeTimestamp converts a millisecond offset into base-62 digits.
//
// The loop stops once the remaining quotient drops to the base, so offsets
// of 62ms or less produce an empty string. A Builder always appends a
// non-empty random suffix, so a built token is never empty; near-epoch
// uniqueness rests on the suffix alone.
func EncodeTimestamp(deltaMillis int64) string {
	var sb strings.Builder

	for deltaMillis > base {
		sb.WriteByte(Alphabet[deltaMillis%base])
		deltaMillis /= base
	}

	return sb.String()
}

// Builder produces tokens made of a time-derived base-62 prefix and a
// cryptographically random base-62 suffix.
type Builder struct {
	epochMillis int64
	suffix      func() string
	now         func() time.Time
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the wall-clock source, for tests.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// WithSuffixFunc overrides the random suffix generator, for tests.
func WithSuffixFunc(suffix func() string) BuilderOption {
	return func(b *Builder) {
		b.suffix = suffix
	}
}

// NewBuilder creates a token builder anchored at epoch. The epoch must not
// be in the future and suffixLength must be at least 1.
func NewBuilder(epoch time.Time, suffixLength int, opts ...BuilderOption) (*Builder, error) {
	if suffixLength < 1 {
		return nil, fmt.Errorf("token: suffix length must be at least 1, got %d", suffixLength)
	}

	b := &Builder{
		epochMillis: epoch.UnixMilli(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.now().UnixMilli() < b.epochMillis {
		return nil, fmt.Errorf("token: epoch %s is in the future", epoch.Format(time.RFC3339))
	}

	if b.suffix == nil {
		gen, err := nanoid.CustomASCII(Alphabet, suffixLength)
		if err != nil {
			return nil, fmt.Errorf("token: build suffix generator: %w", err)
		}

		b.suffix = gen
	}

	return b, nil
}

// Token builds a new token from the current time offset plus a random suffix.
func (b *Builder) Token() string {
	delta := b.now().UnixMilli() - b.epochMillis

	return EncodeTimestamp(delta) + b.suffix()
}
