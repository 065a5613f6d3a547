package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if this holder still owns it, so a
// holder whose lease already expired cannot free someone else's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLease implements shared.Lease with SET NX PX. Each instance carries
// a random holder token.
type RedisLease struct {
	client    redis.UniversalClient
	keyPrefix string
	holder    string
}

// NewRedisLease creates a lease client with a fresh holder token
func NewRedisLease(client redis.UniversalClient) *RedisLease {
	return &RedisLease{client: client, keyPrefix: "fulfil:lease:", holder: uuid.NewString()}
}

// Acquire implements shared.Lease
func (l *RedisLease) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+name, l.holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", name, err)
	}
	return ok, nil
}

// Release implements shared.Lease
func (l *RedisLease) Release(ctx context.Context, name string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + name}, l.holder).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", name, err)
	}
	return nil
}

var _ shared.Lease = (*RedisLease)(nil)

// InMemoryLease implements shared.Lease inside one process
type InMemoryLease struct {
	mu     sync.Mutex
	leases map[string]time.Time
}

// NewInMemoryLease creates an empty lease table
func NewInMemoryLease() *InMemoryLease {
	return &InMemoryLease{leases: make(map[string]time.Time)}
}

// Acquire implements shared.Lease
func (l *InMemoryLease) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if exp, ok := l.leases[name]; ok && now.Before(exp) {
		return false, nil
	}
	l.leases[name] = now.Add(ttl)
	return true, nil
}

// Release implements shared.Lease
func (l *InMemoryLease) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, name)
	return nil
}

var _ shared.Lease = (*InMemoryLease)(nil)
