package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/domain/ledger"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisAdvanceCache caches customer advances in Redis so that every instance
// sees the same invalidations
type RedisAdvanceCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisAdvanceCache connects to Redis and verifies the connection
func NewRedisAdvanceCache(cfg RedisConfig, ttl time.Duration) (*RedisAdvanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisAdvanceCacheWithClient(client, "", ttl), nil
}

// NewRedisAdvanceCacheWithClient creates a cache over an existing client
func NewRedisAdvanceCacheWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisAdvanceCache {
	if keyPrefix == "" {
		keyPrefix = defaultAdvanceKeyPrefix
	}
	if ttl <= 0 {
		ttl = defaultAdvanceTTL
	}
	return &RedisAdvanceCache{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// Get returns the cached advance, or nil on a miss
func (c *RedisAdvanceCache) Get(ctx context.Context, customerID uuid.UUID, financialYear string) (*ledger.CustomerAdvance, error) {
	raw, err := c.client.Get(ctx, advanceKey(c.keyPrefix, customerID, financialYear)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read advance from cache: %w", err)
	}

	var rec advanceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode cached advance: %w", err)
	}
	return rec.toDomain(), nil
}

// Set stores the advance with the configured TTL
func (c *RedisAdvanceCache) Set(ctx context.Context, advance *ledger.CustomerAdvance) error {
	raw, err := json.Marshal(toRecord(advance))
	if err != nil {
		return fmt.Errorf("failed to encode advance: %w", err)
	}
	key := advanceKey(c.keyPrefix, advance.CustomerID, advance.FinancialYear)
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write advance to cache: %w", err)
	}
	return nil
}

// Delete drops the cached advance
func (c *RedisAdvanceCache) Delete(ctx context.Context, customerID uuid.UUID, financialYear string) error {
	if err := c.client.Del(ctx, advanceKey(c.keyPrefix, customerID, financialYear)).Err(); err != nil {
		return fmt.Errorf("failed to delete cached advance: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisAdvanceCache) Close() error {
	return c.client.Close()
}

var _ appledger.AdvanceCache = (*RedisAdvanceCache)(nil)
