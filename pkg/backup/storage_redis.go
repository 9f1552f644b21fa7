package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps snapshots in a Redis hash. Useful when the deployment
// already runs on Redis and has no shared filesystem.
type RedisStorage struct {
	client *redis.Client
	key    string
}

func NewRedisStorage(client *redis.Client, key string) *RedisStorage {
	if key == "" {
		key = "notemesh:snapshots"
	}
	return &RedisStorage{client: client, key: key}
}

func (rs *RedisStorage) Save(ctx context.Context, name string, data io.Reader) error {
	blob, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read snapshot data: %w", err)
	}
	if err := rs.client.HSet(ctx, rs.key, name, blob).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot in Redis: %w", err)
	}
	return nil
}

func (rs *RedisStorage) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	blob, err := rs.client.HGet(ctx, rs.key, name).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("snapshot not found: %s", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from Redis: %w", err)
	}
	return io.NopCloser(bytes.NewReader(blob)), nil
}

func (rs *RedisStorage) List(ctx context.Context, prefix string) ([]string, error) {
	fields, err := rs.client.HKeys(ctx, rs.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots in Redis: %w", err)
	}

	var names []string
	for _, field := range fields {
		if len(field) >= len(prefix) && field[:len(prefix)] == prefix {
			names = append(names, field)
		}
	}
	return names, nil
}

func (rs *RedisStorage) Delete(ctx context.Context, name string) error {
	return rs.client.HDel(ctx, rs.key, name).Err()
}
