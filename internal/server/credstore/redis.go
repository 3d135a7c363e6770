package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mizphses/kips/internal/common"
)

// RedisStore implements Store on top of a Redis instance. Each mapping is a
// key namespace: "<prefix><mapping>:<key>".
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis using a URL of the form
// "redis://[:password@]host:port[/db]" and verifies the connection.
func NewRedisStore(ctx context.Context, url, keyPrefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping error: %w", err)
	}

	return &RedisStore{client: client, keyPrefix: keyPrefix}, nil
}

func (s *RedisStore) resolveKey(m Mapping, key string) string {
	return s.keyPrefix + string(m) + ":" + key
}

func (s *RedisStore) Get(ctx context.Context, m Mapping, key string) (string, error) {
	value, err := s.client.Get(ctx, s.resolveKey(m, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("redis get error: %w", err)
	}
	return value, nil
}

func (s *RedisStore) Put(ctx context.Context, m Mapping, key, value string) error {
	if err := s.client.Set(ctx, s.resolveKey(m, key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, m Mapping, key string) error {
	if err := s.client.Del(ctx, s.resolveKey(m, key)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

// Apply runs all ops inside a MULTI/EXEC pipeline, so the forward and
// reverse key mappings change atomically.
func (s *RedisStore) Apply(ctx context.Context, ops ...Op) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			if op.Remove {
				pipe.Del(ctx, s.resolveKey(op.Mapping, op.Key))
				continue
			}
			pipe.Set(ctx, s.resolveKey(op.Mapping, op.Key), op.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis tx error: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
