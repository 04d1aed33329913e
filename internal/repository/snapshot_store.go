package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps serialized quiz snapshots in Redis. Keys expire
// after ttl so abandoned sessions do not accumulate.
type RedisSnapshotStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSnapshotStore(redisClient *redis.Client, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{redis: redisClient, ttl: ttl}
}

func (s *RedisSnapshotStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisSnapshotStore) Set(ctx context.Context, key, value string) error {
	return s.redis.Set(ctx, key, value, s.ttl).Err()
}

func (s *RedisSnapshotStore) Remove(ctx context.Context, key string) error {
	return s.redis.Del(ctx, key).Err()
}
