package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"InsightBlitz/internal/ports"
)

// Redis adapts a shared Redis instance to the cache port so several
// engine replicas can reuse each other's API responses. Expiry is
// delegated to Redis itself, so there is no sweep goroutine here.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ ports.Cache = (*Redis)(nil)

// NewRedis parses a redis URL and wraps the resulting client.
func NewRedis(url, prefix string, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opts), prefix: prefix, logger: logger}, nil
}

// NewRedisFromClient wraps an existing client, used by tests.
func NewRedisFromClient(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Set serializes value as JSON under the prefixed key with a native TTL.
func (r *Redis) Set(key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		r.warn("marshal cache value", key, err)
		return
	}
	if err := r.client.Set(context.Background(), r.key(key), payload, ttl).Err(); err != nil {
		r.warn("set cache value", key, err)
	}
}

// Get fetches and decodes the value; misses and decode failures read as absent.
func (r *Redis) Get(key string) (any, bool) {
	payload, err := r.client.Get(context.Background(), r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.warn("get cache value", key, err)
		return nil, false
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		r.warn("decode cache value", key, err)
		return nil, false
	}
	return value, true
}

// Delete removes the key; absent keys are a no-op.
func (r *Redis) Delete(key string) {
	if err := r.client.Del(context.Background(), r.key(key)).Err(); err != nil {
		r.warn("delete cache value", key, err)
	}
}

// Clear removes every key under this cache's prefix.
func (r *Redis) Clear() {
	ctx := context.Background()
	iter := r.client.Scan(ctx, 0, r.key("*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.warn("clear cache key", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		r.warn("scan cache keys", r.prefix, err)
	}
}

// Stats counts keys under the prefix. Redis drops expired keys itself,
// so everything counted is valid.
func (r *Redis) Stats() ports.CacheStats {
	ctx := context.Background()
	size := 0
	iter := r.client.Scan(ctx, 0, r.key("*"), 0).Iterator()
	for iter.Next(ctx) {
		size++
	}
	if err := iter.Err(); err != nil {
		r.warn("scan cache keys", r.prefix, err)
	}

	return ports.CacheStats{
		Size:         size,
		ValidEntries: size,
	}
}

func (r *Redis) warn(msg, key string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, "key", key, "error", err)
	}
}
