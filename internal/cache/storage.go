// Package cache provides fiber.Storage backends for middleware state such as
// rate-limit counters.
package cache

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/qolzam/telar/apps/recaptcha/internal/platform/config"
)

var (
	// ErrCacheUnavailable is returned when cache backend is unavailable
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrCacheClosed is returned after Close
	ErrCacheClosed = errors.New("cache closed")
)

var (
	_ fiber.Storage = (*MemoryStorage)(nil)
	_ fiber.Storage = (*RedisStorage)(nil)
)

// NewStorage builds the storage selected by cfg.Backend.
func NewStorage(cfg config.CacheConfig) (fiber.Storage, error) {
	switch cfg.Backend {
	case "", config.CacheBackendMemory:
		return NewMemoryStorage(cfg.Prefix), nil
	case config.CacheBackendRedis:
		return NewRedisStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}
