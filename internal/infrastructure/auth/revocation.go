package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList invalidates tokens before they expire: single tokens on
// logout, every token of a user when the account is deactivated.
type RevocationList interface {
	// Revoke blocks the token with the given JTI for ttl
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether the JTI was revoked
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// RevokeUser rejects all tokens of userID issued up to now
	RevokeUser(ctx context.Context, userID string, ttl time.Duration) error

	// IsUserRevoked reports whether a token issued at issuedAt predates the
	// user's last RevokeUser call
	IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// RedisRevocationList stores revocations in Redis so every replica sees them
type RedisRevocationList struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRevocationList creates a revocation list on an existing client
func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{client: client, keyPrefix: "fulfil:revoked:"}
}

func (r *RedisRevocationList) jtiKey(jti string) string   { return r.keyPrefix + "jti:" + jti }
func (r *RedisRevocationList) userKey(user string) string { return r.keyPrefix + "user:" + user }

// Revoke implements RevocationList
func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked implements RevocationList
func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// RevokeUser implements RevocationList
func (r *RedisRevocationList) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.userKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// IsUserRevoked implements RevocationList
func (r *RedisRevocationList) IsUserRevoked(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	raw, err := r.client.Get(ctx, r.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user revocation: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse revocation timestamp: %w", err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

var _ RevocationList = (*RedisRevocationList)(nil)

// MemoryRevocationList keeps revocations in process memory. It is used when
// Redis is disabled and only suits single-replica deployments.
type MemoryRevocationList struct {
	mu    sync.Mutex
	jtis  map[string]time.Time
	users map[string]time.Time
}

// NewMemoryRevocationList creates an empty in-memory list
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		jtis:  make(map[string]time.Time),
		users: make(map[string]time.Time),
	}
}

// Revoke implements RevocationList
func (m *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jtis[jti] = time.Now().Add(ttl)
	return nil
}

// IsRevoked implements RevocationList
func (m *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.jtis[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(m.jtis, jti)
		return false, nil
	}
	return true, nil
}

// RevokeUser implements RevocationList
func (m *MemoryRevocationList) RevokeUser(_ context.Context, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = time.Now()
	return nil
}

// IsUserRevoked implements RevocationList. Tokens carry second precision,
// so the cutoff is truncated the same way.
func (m *MemoryRevocationList) IsUserRevoked(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	return issuedAt.Unix() <= cutoff.Unix(), nil
}

var _ RevocationList = (*MemoryRevocationList)(nil)
