package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dreschagin/infra-optimizer/internal/application/port"
	"github.com/dreschagin/infra-optimizer/internal/domain/entity"
)

const (
	defaultTTL       = 10 * time.Minute
	defaultKeyPrefix = "optimizer:"
	latestKey        = "cycle:latest"
	maxTxAttempts    = 3
)

// Options configures the Redis connection.
type Options struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// CycleCache keeps the most recent cycle result in Redis.
type CycleCache struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

var _ port.CycleCache = (*CycleCache)(nil)

// NewCycleCache connects to Redis and verifies the connection.
func NewCycleCache(ctx context.Context, opts Options) (*CycleCache, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = defaultKeyPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     4,
		MinIdleConns: 1,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return &CycleCache{
		client: client,
		ttl:    opts.TTL,
		key:    opts.KeyPrefix + latestKey,
	}, nil
}

// GetLatest returns port.ErrCacheMiss when nothing is cached.
func (c *CycleCache) GetLatest(ctx context.Context) (*entity.CycleResult, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read latest cycle: %w", err)
	}

	var result entity.CycleResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached cycle: %w", err)
	}
	return &result, nil
}

// SetLatest stores result unless a cycle that started later is already cached.
// The check and the write run in one WATCH transaction.
func (c *CycleCache) SetLatest(ctx context.Context, result *entity.CycleResult) error {
	if result == nil {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode cycle %s: %w", result.ID, err)
	}

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, c.key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if isNewer(current, result.StartedAt) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, payload, c.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err = c.client.Watch(ctx, txf, c.key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to cache cycle %s: %w", result.ID, err)
	}
	return nil
}

// Ping is used by the readiness probe.
func (c *CycleCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *CycleCache) Close() error {
	return c.client.Close()
}

// isNewer reports whether the cached payload belongs to a cycle that started
// after started. Unreadable payloads never block a write.
func isNewer(current []byte, started time.Time) bool {
	if len(current) == 0 {
		return false
	}
	var stored struct {
		StartedAt time.Time `json:"started_at"`
	}
	if err := json.Unmarshal(current, &stored); err != nil {
		return false
	}
	return stored.StartedAt.After(started)
}
