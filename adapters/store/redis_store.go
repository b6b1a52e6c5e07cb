package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements both the key-value and sliding-window store
// ports on a shared Redis client. Window entries live in a sorted set
// scored by the request timestamp in milliseconds.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. All keys are namespaced
// with the given prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "gatekeeper:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Window prunes entries older than windowStart and returns the count of
// surviving entries plus the oldest one, in a single pipeline round-trip.
func (s *RedisStore) Window(ctx context.Context, key string, windowStart time.Time) (int64, time.Time, error) {
	full := s.prefix + key
	cutoff := strconv.FormatInt(windowStart.UnixMilli(), 10)

	pipe := s.client.TxPipeline()
	// Exclusive bound so the boundary entry at exactly windowStart
	// survives, matching the memory adapter.
	pipe.ZRemRangeByScore(ctx, full, "0", "("+cutoff)
	card := pipe.ZCard(ctx, full)
	oldest := pipe.ZRangeWithScores(ctx, full, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, fmt.Errorf("redis window: %w", err)
	}

	var oldestAt time.Time
	if entries := oldest.Val(); len(entries) > 0 {
		oldestAt = time.UnixMilli(int64(entries[0].Score))
	}

	return card.Val(), oldestAt, nil
}

// Record adds a window entry for the current request.
func (s *RedisStore) Record(ctx context.Context, key string, now time.Time, ttl time.Duration) error {
	full := s.prefix + key

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, full, redis.Z{
		Score: float64(now.UnixMilli()),
		// Random member so concurrent requests in the same millisecond
		// each count as a separate entry.
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, full, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis record: %w", err)
	}

	return nil
}

func (s *RedisStore) Count(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	cutoff := strconv.FormatInt(windowStart.UnixMilli(), 10)
	count, err := s.client.ZCount(ctx, s.prefix+key, cutoff, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis count: %w", err)
	}
	return count, nil
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
