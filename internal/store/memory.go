// Package store provides the persistence backends: MongoDB (primary),
// PostgreSQL (alternative), Redis (cache and ready-token queue), and
// in-memory implementations for tests and local runs.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/shortener-go/internal/shortener"
	"github.com/serroba/shortener-go/internal/token"
)

// MemoryPool is an in-memory token.PoolRepository.
type MemoryPool struct {
	mu     sync.RWMutex
	tokens map[string]token.PooledToken
}

// NewMemoryPool creates an in-memory token ledger.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{
		tokens: make(map[string]token.PooledToken),
	}
}

func (p *MemoryPool) Insert(_ context.Context, t token.PooledToken) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.tokens[t.Token]; ok {
		return token.ErrDuplicateToken
	}

	p.tokens[t.Token] = t

	return nil
}

func (p *MemoryPool) CountUnused(_ context.Context) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var count int64

	for _, t := range p.tokens {
		if !t.Used {
			count++
		}
	}

	return count, nil
}

func (p *MemoryPool) Exists(_ context.Context, tok string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.tokens[tok]

	return ok, nil
}

func (p *MemoryPool) MarkUsed(_ context.Context, tok string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tokens[tok]
	if !ok || t.Used {
		return nil
	}

	t.Used = true
	t.UsedAt = &at
	p.tokens[tok] = t

	return nil
}

// MemoryQueue is an in-memory token.TokenQueue.
type MemoryQueue struct {
	mu     sync.Mutex
	tokens []string
}

// NewMemoryQueue creates an in-memory ready-token queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(_ context.Context, tok string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tokens = append(q.tokens, tok)

	return nil
}

func (q *MemoryQueue) Pop(_ context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tokens) == 0 {
		return "", token.ErrQueueEmpty
	}

	tok := q.tokens[0]
	q.tokens = q.tokens[1:]

	return tok, nil
}

// MemoryLinks is an in-memory shortener.Repository.
type MemoryLinks struct {
	mu    sync.RWMutex
	links map[string]shortener.ShortLink
}

// NewMemoryLinks creates an in-memory short-link store.
func NewMemoryLinks() *MemoryLinks {
	return &MemoryLinks{
		links: make(map[string]shortener.ShortLink),
	}
}

func (m *MemoryLinks) FindByToken(_ context.Context, tok string) (*shortener.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[tok]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &link, nil
}

func (m *MemoryLinks) FindActiveByURL(_ context.Context, url string, now time.Time) (*shortener.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, link := range m.links {
		if link.URL == url && link.Active(now) {
			return &link, nil
		}
	}

	return nil, shortener.ErrNotFound
}

func (m *MemoryLinks) Upsert(_ context.Context, link *shortener.ShortLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.links[link.Token] = *link

	return nil
}

type cachedLink struct {
	url       string
	expiresAt time.Time
}

// MemoryLinkCache is a TTL-aware in-memory shortener.LinkCache.
type MemoryLinkCache struct {
	mu      sync.RWMutex
	entries map[string]cachedLink
	now     func() time.Time
}

// NewMemoryLinkCache creates an in-memory link cache.
func NewMemoryLinkCache() *MemoryLinkCache {
	return &MemoryLinkCache{
		entries: make(map[string]cachedLink),
		now:     time.Now,
	}
}

func (c *MemoryLinkCache) Get(_ context.Context, tok string) (string, error) {
	c.mu.RLock()
	entry, ok := c.entries[tok]
	c.mu.RUnlock()

	if !ok {
		return "", shortener.ErrNotFound
	}

	if !entry.expiresAt.After(c.now()) {
		c.Evict(tok)

		return "", shortener.ErrNotFound
	}

	return entry.url, nil
}

func (c *MemoryLinkCache) SetWithTTL(_ context.Context, tok, url string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[tok] = cachedLink{
		url:       url,
		expiresAt: c.now().Add(ttl),
	}

	return nil
}

// Evict drops a cached entry. Exposed for cache-aside tests.
func (c *MemoryLinkCache) Evict(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tok)
}

var (
	_ token.PoolRepository = (*MemoryPool)(nil)
	_ token.TokenQueue     = (*MemoryQueue)(nil)
	_ shortener.Repository = (*MemoryLinks)(nil)
	_ shortener.LinkCache  = (*MemoryLinkCache)(nil)
)
