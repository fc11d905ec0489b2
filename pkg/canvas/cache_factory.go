package canvas

import (
	"fmt"
	"time"

	"github.com/edukit-io/canvas-client/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// CacheConfig configures the response cache backend.
type CacheConfig struct {
	// Type is the cache backend type.
	Type CacheType

	// Memory cache configuration.
	Memory *MemoryCacheConfig

	// NATS KV cache configuration.
	NATS *NATSKVConfig

	// TTL applied to stored responses; zero takes the default.
	TTL time.Duration
}

// MemoryCacheConfig configures the memory cache backend.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of items in the cache.
	MaxSize int

	// CleanupInterval is the interval for evicting expired entries.
	CleanupInterval time.Duration
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type: CacheTypeMemory,
		Memory: &MemoryCacheConfig{
			MaxSize:         constants.DefaultCacheSize,
			CleanupInterval: constants.DefaultCacheCleanupInterval,
		},
		TTL: constants.DefaultCacheTTL,
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		return NewNoOpCache(), nil
	}

	switch config.Type {
	case CacheTypeMemory:
		memConfig := config.Memory
		if memConfig == nil {
			memConfig = DefaultCacheConfig().Memory
		}

		cache := NewMemoryCache(memConfig.MaxSize)

		if memConfig.CleanupInterval > 0 {
			err := cache.StartCleanup(memConfig.CleanupInterval)
			if err != nil {
				return nil, err
			}
		}

		return cache, nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCache, config.Type)
	}
}
