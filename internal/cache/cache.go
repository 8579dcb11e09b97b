// Package cache stores serialized query results keyed by query shape.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/ontograph/internal/logger"
	"github.com/ppiankov/ontograph/internal/model"
)

// KeyPrefix namespaces every key; bump the version when cached shapes change
const KeyPrefix = "ontograph:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// CacheKey hashes a query kind and its parameters into a cache key
func CacheKey(kind string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return KeyPrefix + kind + ":" + hex.EncodeToString(hash[:])
}

// New builds the cache selected by cfg. A disabled cache returns nil.
func New(cfg model.CacheConfig, log *logger.Logger) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if log == nil {
		log = logger.Nop()
	}

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(cfg.TTL, 10*time.Minute), nil
	case "disk":
		return NewDiskCache(cfg.Dir, cfg.TTL), nil
	case "redis":
		return NewRedisCache(cfg.RedisAddr, cfg.TTL, log)
	case "layered":
		front := NewMemoryCache(cfg.TTL, 10*time.Minute)
		if cfg.RedisAddr != "" {
			back, err := NewRedisCache(cfg.RedisAddr, cfg.TTL, log)
			if err != nil {
				return nil, err
			}
			return NewLayeredCache(front, back), nil
		}
		return NewLayeredCache(front, NewDiskCache(cfg.Dir, cfg.TTL)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
