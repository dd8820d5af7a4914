package store

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

var _ Backend = (*RedisBackend)(nil)

// RedisBackend uses one redis logical DB as the namespace; clearing it
// is a FLUSHDB.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{
		client: client,
	}
}

func (r *RedisBackend) Read(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisBackend) Write(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisBackend) Clear(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
