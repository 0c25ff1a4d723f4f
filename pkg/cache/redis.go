package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis key layout, per named cache:
//
//	mealcache:<name>:entries  HASH   key string -> entry JSON
//	mealcache:<name>:order    LIST   key strings, oldest first
//	mealcache:names           SET    registry of named caches
const (
	redisKeyPrefix = "mealcache"
	redisNamesKey  = redisKeyPrefix + ":names"
)

// RedisStore is a Store backed by Redis, for deployments where several
// proxy instances should share one runtime cache. Insertion order is kept
// in a list alongside the entry hash.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a cache store with a Redis backend.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

func entriesKey(name string) string {
	return fmt.Sprintf("%s:%s:entries", redisKeyPrefix, name)
}

func orderKey(name string) string {
	return fmt.Sprintf("%s:%s:order", redisKeyPrefix, name)
}

func (s *RedisStore) Match(ctx context.Context, name string, key Key) (*Entry, error) {
	data, err := s.redis.HGet(ctx, entriesKey(name), key.String()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis hget: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}

func (s *RedisStore) Put(ctx context.Context, name string, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	k := key.String()

	// HSet reports whether the field was newly added; on overwrite the
	// key has to be re-queued at the tail to become newest again.
	added, err := s.redis.HSet(ctx, entriesKey(name), k, data).Result()
	if err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	if added == 0 {
		if err := s.redis.LRem(ctx, orderKey(name), 0, k).Err(); err != nil {
			return fmt.Errorf("redis lrem: %w", err)
		}
	}
	if err := s.redis.RPush(ctx, orderKey(name), k).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	if err := s.redis.SAdd(ctx, redisNamesKey, name).Err(); err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, name string, key Key) error {
	k := key.String()
	if err := s.redis.HDel(ctx, entriesKey(name), k).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	if err := s.redis.LRem(ctx, orderKey(name), 0, k).Err(); err != nil {
		return fmt.Errorf("redis lrem: %w", err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, name string) ([]Key, error) {
	raw, err := s.redis.LRange(ctx, orderKey(name), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	keys := make([]Key, 0, len(raw))
	for _, k := range raw {
		key, err := ParseKey(k)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *RedisStore) DeleteCache(ctx context.Context, name string) (bool, error) {
	deleted, err := s.redis.Del(ctx, entriesKey(name), orderKey(name)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	if err := s.redis.SRem(ctx, redisNamesKey, name).Err(); err != nil {
		return false, fmt.Errorf("redis srem: %w", err)
	}
	return deleted > 0, nil
}

func (s *RedisStore) ListCacheNames(ctx context.Context) ([]string, error) {
	names, err := s.redis.SMembers(ctx, redisNamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	return names, nil
}

func (s *RedisStore) Close() error {
	return s.redis.Close()
}
