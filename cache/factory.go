package cache

import "fmt"

// Type selects the cache backend.
type Type string

const (
	TypeMemory Type = "memory"
	TypeRedis  Type = "redis"
)

// TypeFromString normalizes a config value, defaulting to memory.
func TypeFromString(s string) Type {
	if s == string(TypeRedis) {
		return TypeRedis
	}
	return TypeMemory
}

// FactoryConfig aggregates backend settings; only the selected backend's
// section is consulted.
type FactoryConfig struct {
	Type   Type
	Memory MemoryConfig
	Redis  *RedisConfig
}

// NewStore builds the configured backend.
func NewStore(config FactoryConfig) (Store, error) {
	switch config.Type {
	case TypeRedis:
		if config.Redis == nil {
			return nil, fmt.Errorf("redis cache selected but not configured")
		}
		return NewRedisCache(config.Redis)
	case TypeMemory, "":
		return NewMemoryCache(config.Memory), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", config.Type)
	}
}
