package cache

import (
	"context"
	"time"

	"paricus-portal/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares one cache category across API replicas.
//
// All RedisStores created with the same namespace share a generation counter, so flushing
// any of them invalidates every category in a single INCR.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
	category  Category
	ttl       time.Duration
}

func NewRedisStore(rdb *redis.Client, namespace string, category Category, ttl time.Duration) *RedisStore {
	if namespace == "" {
		namespace = "cdr"
	}
	return &RedisStore{rdb: rdb, namespace: namespace, category: category, ttl: ttl}
}

func (s *RedisStore) genKey() string { return s.namespace + ":gen" }

func (s *RedisStore) prefix() string { return s.namespace + ":" + string(s.category) }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return utils.GenGet(ctx, s.rdb, s.genKey(), s.prefix(), key)
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return utils.GenSet(ctx, s.rdb, s.genKey(), s.prefix(), key, value, s.ttl)
}

func (s *RedisStore) Generation(ctx context.Context) (int64, error) {
	return utils.GenCurrent(ctx, s.rdb, s.genKey())
}

func (s *RedisStore) SetAt(ctx context.Context, gen int64, key string, value []byte) (bool, error) {
	return utils.GenSetAt(ctx, s.rdb, s.genKey(), s.prefix(), key, gen, value, s.ttl)
}

func (s *RedisStore) Flush(ctx context.Context) error {
	_, err := utils.GenBump(ctx, s.rdb, s.genKey())
	return err
}

func (s *RedisStore) TTL() time.Duration { return s.ttl }
