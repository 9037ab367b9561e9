package cache

import (
	"fmt"

	"github.com/wappahq/wappa/internal/cache/jsonfile"
	"github.com/wappahq/wappa/internal/cache/memory"
	"github.com/wappahq/wappa/internal/cache/redis"
	"github.com/wappahq/wappa/internal/config"
)

// NewBackend constructs the process-wide cache backend from
// configuration. The choice is explicit startup state, not an ambient
// global, so tests can substitute a backend per test.
func NewBackend(cfg config.CacheConfig) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "jsonfile":
		return jsonfile.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	default:
		return nil, fmt.Errorf("cache: unknown backend type %q", cfg.Type)
	}
}
