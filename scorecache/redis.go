package scorecache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBackend implements Backend over go-redis, grounded on
// SoySergo-location_microservice's cache/redis.go connection-wrapper idiom.
// Upsert semantics (spec §5 "last write wins; idempotent because inputs are
// versioned") fall directly out of redis.Client.Set.
type RedisBackend struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBackend wraps an already-configured *redis.Client. Connectivity is
// the caller's responsibility (e.g. via client.Ping at startup), matching
// the teacher's NewRedis constructor.
func NewRedisBackend(client *redis.Client, logger *zap.Logger) *RedisBackend {
	return &RedisBackend{client: client, logger: logger}
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		b.logger.Error("scorecache redis get failed", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	// No TTL: per spec §4.H, entries are eternally valid until cascade delete.
	if err := b.client.Set(ctx, key, value, 0).Err(); err != nil {
		b.logger.Error("scorecache redis set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		b.logger.Error("scorecache redis delete failed", zap.Int("count", len(keys)), zap.Error(err))
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
