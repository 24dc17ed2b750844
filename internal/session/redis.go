package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// hashClient is the subset of redis.Cmdable the store needs.
type hashClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps credentials in one Redis hash per profile, so several
// machines can share a session.
type RedisStore struct {
	client hashClient
	key    string
}

// NewRedisClient connects to Redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisStore returns a store writing to the hash vidclient:session:<profile>.
func NewRedisStore(client hashClient, profile string) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, key: "vidclient:session:" + profile}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, kind Kind) (string, bool, error) {
	value, err := s.client.HGet(ctx, s.key, string(kind)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", kind, err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, kind Kind, value string) error {
	return s.SetMany(ctx, map[Kind]string{kind: value})
}

// SetMany implements BatchStore with a single HSET.
func (s *RedisStore) SetMany(ctx context.Context, values map[Kind]string) error {
	fields := make([]interface{}, 0, 2*len(values))
	for kind, value := range values {
		fields = append(fields, string(kind), value)
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, s.key, fields...).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
