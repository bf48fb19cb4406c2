package cache

import (
	"fmt"
	"time"

	appledger "github.com/travelops/backoffice/internal/application/ledger"
	"github.com/travelops/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// AdvanceCacheFactory creates the advance cache based on configuration
type AdvanceCacheFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*AdvanceCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *AdvanceCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the in-memory cache.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *AdvanceCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewAdvanceCacheFactory creates a new factory
func NewAdvanceCacheFactory(cfg config.RedisConfig, ttl time.Duration, opts ...FactoryOption) *AdvanceCacheFactory {
	f := &AdvanceCacheFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis cache when Redis is enabled and reachable, the
// in-memory cache otherwise
func (f *AdvanceCacheFactory) Create() (appledger.AdvanceCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory advance cache")
		return NewInMemoryAdvanceCache(f.ttl), nil
	}

	store, err := NewRedisAdvanceCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.ttl)
	if err == nil {
		f.logger.Info("using Redis advance cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for advance cache but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory advance cache; invalidations will not reach other instances",
		zap.Error(err),
	)
	return NewInMemoryAdvanceCache(f.ttl), nil
}
