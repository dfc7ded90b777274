package cache

import (
	"context"
	"strings"
	"time"

	"course_platform_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
)

const scanBatch = 200

// RedisStore implements Store on a shared Redis instance. Keys are namespaced
// with prefix so ClearAll never touches foreign data.
type RedisStore struct {
	Redis  *redis.Client
	Prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{Redis: rdb, Prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.Redis.Get(ctx, s.Prefix+key).Bytes()
	if err == redis.Nil {
		monitoring.CacheMisses.WithLabelValues("redis").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	monitoring.CacheHits.WithLabelValues("redis").Inc()
	return val, true, nil
}

// Set rejects ttl <= 0, which go-redis would otherwise store without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return s.Redis.Set(ctx, s.Prefix+key, value, ttl).Err()
}

func (s *RedisStore) ClearPattern(ctx context.Context, pattern string) error {
	if strings.Count(pattern, "*") > 1 {
		return ErrInvalidPattern
	}
	return s.deleteMatching(ctx, escapeGlob(s.Prefix)+redisPattern(pattern))
}

func (s *RedisStore) ClearAll(ctx context.Context) error {
	return s.deleteMatching(ctx, escapeGlob(s.Prefix)+"*")
}

func (s *RedisStore) deleteMatching(ctx context.Context, match string) error {
	var cursor uint64
	for {
		keys, next, err := s.Redis.Scan(ctx, cursor, match, scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// redisPattern keeps the single '*' wildcard and escapes every other glob
// metacharacter so the match stays literal.
func redisPattern(pattern string) string {
	parts := strings.SplitN(pattern, "*", 2)
	out := escapeGlob(parts[0])
	if len(parts) == 2 {
		out += "*" + escapeGlob(parts[1])
	}
	return out
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
