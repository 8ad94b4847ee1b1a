package shortener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ShortenResult is the outcome of a successful Shorten call.
type ShortenResult struct {
	Token     string
	ShortURL  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service implements the public Shorten and Resolve operations with a
// cache-aside read path over the authoritative repository.
type Service struct {
	repo       Repository
	cache      LinkCache
	tokens     TokenSource
	baseURL    string
	defaultTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock overrides the wall-clock source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the shorten/resolve service.
func NewService(
	repo Repository,
	cache LinkCache,
	tokens TokenSource,
	baseURL string,
	defaultTTL time.Duration,
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		repo:       repo,
		cache:      cache,
		tokens:     tokens,
		baseURL:    baseURL,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Shorten creates or refreshes a short link for rawURL. A nil ttl uses the
// configured default. When an active link for the same URL already exists
// its token is reused and its expiry refreshed instead of minting a new
// token.
func (s *Service) Shorten(ctx context.Context, rawURL string, ttl *time.Duration) (*ShortenResult, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	linkTTL := s.defaultTTL

	if ttl != nil {
		if *ttl <= 0 {
			return nil, &ValidationError{Field: "ttl", Message: "must be a positive duration"}
		}

		linkTTL = *ttl
	}

	now := s.now()

	link, err := s.repo.FindActiveByURL(ctx, rawURL, now)

	switch {
	case err == nil:
		// Reuse the existing token, refresh the expiry.
		link.ExpiresAt = now.Add(linkTTL)
	case errors.Is(err, ErrNotFound):
		token, issueErr := s.tokens.Issue(ctx)
		if issueErr != nil {
			return nil, fmt.Errorf("issue token: %w", issueErr)
		}

		link = &ShortLink{
			Token:     token,
			URL:       rawURL,
			CreatedAt: now,
			ExpiresAt: now.Add(linkTTL),
		}
	default:
		return nil, fmt.Errorf("look up existing link: %w", err)
	}

	if err := s.repo.Upsert(ctx, link); err != nil {
		return nil, fmt.Errorf("save short link: %w", err)
	}

	s.cacheLink(ctx, link, now)

	return &ShortenResult{
		Token:     link.Token,
		ShortURL:  fmt.Sprintf("%s/%s", s.baseURL, link.Token),
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

// Resolve returns the destination URL for a token. Expired tokens are
// reported as ErrNotFound, same as tokens that never existed.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrNotFound
	}

	cached, err := s.cache.Get(ctx, token)
	if err == nil {
		return cached, nil
	}

	if !errors.Is(err, ErrNotFound) {
		// Cache trouble degrades to a store read.
		s.logger.Warn("link cache read failed", zap.String("token", token), zap.Error(err))
	}

	link, err := s.repo.FindByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return "", ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("load short link: %w", err)
	}

	now := s.now()
	if !link.Active(now) {
		return "", ErrNotFound
	}

	s.cacheLink(ctx, link, now)

	return link.URL, nil
}

// cacheLink writes the link through to the cache with a TTL equal to its
// remaining lifetime, so a cached entry can never outlive the link itself.
// Cache failures only cost the next read a store round-trip.
func (s *Service) cacheLink(ctx context.Context, link *ShortLink, now time.Time) {
	remaining := link.Remaining(now)
	if remaining <= 0 {
		return
	}

	if err := s.cache.SetWithTTL(ctx, link.Token, link.URL, remaining); err != nil {
		s.logger.Warn("link cache write failed", zap.String("token", link.Token), zap.Error(err))
	}
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "must not be empty"}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: "must be a valid URL"}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "must be an absolute http or https URL"}
	}

	if parsed.Host == "" {
		return &ValidationError{Field: "url", Message: "must include a host"}
	}

	return nil
}
