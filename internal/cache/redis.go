package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a WriteCache[T] backed by a Redis key namespace (spec
// §6.2): key = prefix || separator || asset_id, values JSON-serialized.
type RedisCache[T any] struct {
	client    *redis.Client
	prefix    string
	separator string
}

// NewRedisCache builds a tier scoped to prefix, keys joined with separator.
func NewRedisCache[T any](client *redis.Client, prefix, separator string) *RedisCache[T] {
	return &RedisCache[T]{client: client, prefix: prefix, separator: separator}
}

func (c *RedisCache[T]) key(assetID string) string {
	return c.prefix + c.separator + assetID
}

// Get implements ReadCache[T].
func (c *RedisCache[T]) Get(ctx context.Context, assetID string) (T, bool, error) {
	var zero T
	raw, err := c.client.Get(ctx, c.key(assetID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("cache: get %s: %w", c.key(assetID), err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("cache: decoding %s: %w", c.key(assetID), err)
	}
	return v, true, nil
}

// MGet implements ReadCache[T] with a single MGET round trip.
func (c *RedisCache[T]) MGet(ctx context.Context, assetIDs []string) (map[string]T, error) {
	out := make(map[string]T, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(assetIDs))
	for i, id := range assetIDs {
		keys[i] = c.key(id)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: mget: %w", err)
	}
	for i, raw := range vals {
		if raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("cache: decoding %s: %w", keys[i], err)
		}
		out[assetIDs[i]] = v
	}
	return out, nil
}

// Set implements WriteCache[T]. Entries never expire: the cache is a
// read-through projection kept coherent by the ingest orchestrator, not a
// TTL-based cache.
func (c *RedisCache[T]) Set(ctx context.Context, assetID string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encoding %s: %w", c.key(assetID), err)
	}
	if err := c.client.Set(ctx, c.key(assetID), raw, 0).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", c.key(assetID), err)
	}
	return nil
}

// Clear implements WriteCache[T]: deletes every key under this tier's
// prefix via SCAN + pipelined DEL (spec §6.2 bulk clear).
func (c *RedisCache[T]) Clear(ctx context.Context) error {
	pattern := c.prefix + c.separator + "*"
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return fmt.Errorf("cache: scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			pipe := c.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return fmt.Errorf("cache: pipelined delete under %s: %w", pattern, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	log.Info("Cleared cache tier", "prefix", c.prefix, "keysDeleted", deleted)
	return nil
}

var (
	_ ReadCache[int]  = (*RedisCache[int])(nil)
	_ WriteCache[int] = (*RedisCache[int])(nil)
)
