package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the monitored-county set under a single well-known key.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) ([]int, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		// First use: nothing persisted yet.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load counties: %w", err)
	}
	return decodeCounties(raw), nil
}

func (s *RedisStore) Save(ctx context.Context, counties []int) error {
	if err := s.client.Set(ctx, s.key, encodeCounties(counties), 0).Err(); err != nil {
		return fmt.Errorf("save counties: %w", err)
	}
	return nil
}
