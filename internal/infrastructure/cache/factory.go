package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/fulfildesk/backend/internal/domain/shared"
	"github.com/fulfildesk/backend/internal/infrastructure/auth"
	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends bundles the shared-state adapters used across replicas
type Backends struct {
	Idempotency shared.IdempotencyStore
	Lease       shared.Lease
	Revocations auth.RevocationList
	// Client is nil when Redis is disabled
	Client *redis.Client

	closers []func() error
}

// NewBackends connects to Redis when enabled, otherwise it falls back to
// in-process implementations.
func NewBackends(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Backends, error) {
	if !cfg.Enabled {
		logger.Warn("Redis disabled, using in-memory idempotency, lease and token revocation. " +
			"Run a single replica in this mode.")
		store := NewInMemoryIdempotencyStore()
		return &Backends{
			Idempotency: store,
			Lease:       NewInMemoryLease(),
			Revocations: auth.NewMemoryRevocationList(),
			closers:     []func() error{store.Close},
		}, nil
	}

	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.Addr()), zap.Int("db", cfg.DB))
	return NewRedisBackends(client), nil
}

// NewRedisBackends wires every adapter to client
func NewRedisBackends(client *redis.Client) *Backends {
	return &Backends{
		Idempotency: NewRedisIdempotencyStore(client, ""),
		Lease:       NewRedisLease(client),
		Revocations: auth.NewRedisRevocationList(client),
		Client:      client,
		closers:     []func() error{client.Close},
	}
}

// NewRedisClient creates a client and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Ping checks Redis when it is in use
func (b *Backends) Ping(ctx context.Context) error {
	if b.Client == nil {
		return nil
	}
	return b.Client.Ping(ctx).Err()
}

// Close releases every backend
func (b *Backends) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
