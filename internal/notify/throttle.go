package notify

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle suppresses repeat notifications per key. Allow reports whether the
// key was free and atomically claims it for the window.
type Throttle interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// RedisThrottle claims keys with SET NX EX, which is atomic across engine
// replicas sharing one redis.
type RedisThrottle struct {
	client *redis.Client
	prefix string
}

func NewRedisThrottle(client *redis.Client) *RedisThrottle {
	return &RedisThrottle{client: client, prefix: "notify:throttle:"}
}

func (t *RedisThrottle) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return t.client.SetNX(ctx, t.prefix+key, 1, window).Result()
}

// MemoryThrottle is the in-process variant used in tests and single-node
// deploys without redis.
type MemoryThrottle struct {
	mu      sync.Mutex
	claimed map[string]time.Time
	Now     func() time.Time
}

func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{
		claimed: make(map[string]time.Time),
		Now:     time.Now,
	}
}

func (t *MemoryThrottle) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.Now()
	if until, ok := t.claimed[key]; ok && until.After(now) {
		return false, nil
	}
	t.claimed[key] = now.Add(window)
	return true, nil
}
