package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig holds connection settings for the redis backend.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisCache stores entries in redis with server-side expiry. Hit/miss
// counters are tracked locally; size is queried from the server.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewRedisCache connects and verifies the server is reachable.
func NewRedisCache(config *RedisConfig) (*RedisCache, error) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	slog.Info("Redis cache connected successfully", "addr", config.Addr)

	return &RedisCache{
		client: client,
		ctx:    ctx,
	}, nil
}

func (r *RedisCache) Get(key string) ([]byte, bool) {
	val, err := r.client.Get(r.ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Error("Redis get error", "error", err, "key", key)
		}
		r.recordMiss()
		return nil, false
	}

	r.recordHit()
	return val, true
}

func (r *RedisCache) Set(key string, value []byte, ttl time.Duration) {
	if value == nil {
		return
	}

	if err := r.client.Set(r.ctx, key, value, ttl).Err(); err != nil {
		slog.Error("Redis set error", "error", err, "key", key)
	}
}

func (r *RedisCache) Delete(key string) bool {
	deleted, err := r.client.Del(r.ctx, key).Result()
	if err != nil {
		slog.Error("Redis delete error", "error", err, "key", key)
		return false
	}
	return deleted > 0
}

func (r *RedisCache) Has(key string) bool {
	exists, err := r.client.Exists(r.ctx, key).Result()
	if err != nil {
		slog.Error("Redis exists error", "error", err, "key", key)
		return false
	}
	return exists > 0
}

func (r *RedisCache) Clear() {
	if err := r.client.FlushDB(r.ctx).Err(); err != nil {
		slog.Error("Redis clear error", "error", err)
	}
}

func (r *RedisCache) Stats() Stats {
	r.mu.Lock()
	hits, misses := r.hits, r.misses
	r.mu.Unlock()

	stats := Stats{Hits: hits, Misses: misses}
	if size, err := r.client.DBSize(r.ctx).Result(); err == nil {
		stats.Size = int(size)
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Stop closes the client connection.
func (r *RedisCache) Stop() {
	if err := r.client.Close(); err != nil {
		slog.Warn("Redis close error", "error", err)
	}
}

func (r *RedisCache) recordHit() {
	r.mu.Lock()
	r.hits++
	r.mu.Unlock()
}

func (r *RedisCache) recordMiss() {
	r.mu.Lock()
	r.misses++
	r.mu.Unlock()
}
