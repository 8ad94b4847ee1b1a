package joblock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if it is still held by us, so a
// release after lock expiry cannot free a competing holder's lock.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard backed by SET NX EX, usable when the scheduler
// runs on multiple nodes. Each guard instance has its own holder identity;
// the TTL bounds how long a crashed holder can block the job.
type RedisGuard struct {
	client *redis.Client
	prefix string
	holder string
	ttl    time.Duration

	mu   sync.Mutex
	held map[string]bool
}

// NewRedisGuard creates a Redis-backed lock guard. Locks expire after ttl
// if never released.
func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{
		client: client,
		prefix: "joblock:",
		holder: uuid.NewString(),
		ttl:    ttl,
		held:   make(map[string]bool),
	}
}

func (g *RedisGuard) TryAcquire(ctx context.Context, name string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.prefix+name, g.holder, g.ttl).Result()
	if err != nil {
		return false, err
	}

	if ok {
		g.mu.Lock()
		g.held[name] = true
		g.mu.Unlock()
	}

	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, name string) error {
	g.mu.Lock()
	held := g.held[name]
	delete(g.held, name)
	g.mu.Unlock()

	if !held {
		return nil
	}

	return releaseScript.Run(ctx, g.client, []string{g.prefix + name}, g.holder).Err()
}

var _ Guard = (*RedisGuard)(nil)
