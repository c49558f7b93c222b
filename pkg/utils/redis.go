package utils

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig controls redis client behavior.
// Keep it config-driven; defaults should be safe and conservative.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// Basic timeouts
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Pool tuning
	PoolSize        int
	MinIdleConns    int
	PoolTimeout     time.Duration
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration

	PingTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	out := c
	if out.DialTimeout <= 0 {
		out.DialTimeout = 3 * time.Second
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = 2 * time.Second
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = 2 * time.Second
	}
	if out.PoolSize <= 0 {
		out.PoolSize = 20
	}
	if out.MinIdleConns < 0 {
		out.MinIdleConns = 0
	}
	if out.PoolTimeout <= 0 {
		out.PoolTimeout = 4 * time.Second
	}
	if out.ConnMaxIdleTime <= 0 {
		out.ConnMaxIdleTime = 5 * time.Minute
	}
	if out.ConnMaxLifetime <= 0 {
		out.ConnMaxLifetime = 30 * time.Minute
	}
	if out.PingTimeout <= 0 {
		out.PingTimeout = 2 * time.Second
	}
	return out
}

// OpenRedis initializes a Redis client and validates connectivity via PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Generational keys: every value key embeds the current value of a generation counter.
// Bumping the counter orphans all values at once; orphans age out through their TTL.

var genGetScript = redis.NewScript(`
-- KEYS[1] = generation key
-- ARGV[1] = value key prefix
-- ARGV[2] = value key suffix
local gen = redis.call('GET', KEYS[1]) or '0'
return redis.call('GET', ARGV[1] .. ':' .. gen .. ':' .. ARGV[2])
`)

var genSetScript = redis.NewScript(`
-- KEYS[1] = generation key
-- ARGV[1] = value key prefix
-- ARGV[2] = value key suffix
-- ARGV[3] = value
-- ARGV[4] = ttl_ms (int)
local gen = redis.call('GET', KEYS[1]) or '0'
redis.call('SET', ARGV[1] .. ':' .. gen .. ':' .. ARGV[2], ARGV[3], 'PX', ARGV[4])
return 1
`)

var genSetAtScript = redis.NewScript(`
-- KEYS[1] = generation key
-- ARGV[1] = value key prefix
-- ARGV[2] = value key suffix
-- ARGV[3] = value
-- ARGV[4] = ttl_ms (int)
-- ARGV[5] = expected generation
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[5] then
  return 0
end
redis.call('SET', ARGV[1] .. ':' .. gen .. ':' .. ARGV[2], ARGV[3], 'PX', ARGV[4])
return 1
`)

// GenGet reads suffix under the current generation. A missing value returns (nil, false, nil).
func GenGet(ctx context.Context, rdb redis.Scripter, genKey, prefix, suffix string) ([]byte, bool, error) {
	if rdb == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	res, err := genGetScript.Run(ctx, rdb, []string{genKey}, prefix, suffix).Text()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(res), true, nil
}

// GenSet writes suffix under the current generation with a TTL.
func GenSet(ctx context.Context, rdb redis.Scripter, genKey, prefix, suffix string, value []byte, ttl time.Duration) error {
	if rdb == nil {
		return fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be > 0")
	}
	return genSetScript.Run(ctx, rdb, []string{genKey}, prefix, suffix, value, ttl.Milliseconds()).Err()
}

// GenSetAt writes suffix only if the generation is still gen. It reports whether it wrote.
func GenSetAt(ctx context.Context, rdb redis.Scripter, genKey, prefix, suffix string, gen int64, value []byte, ttl time.Duration) (bool, error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return false, fmt.Errorf("ttl must be > 0")
	}
	n, err := genSetAtScript.Run(ctx, rdb, []string{genKey}, prefix, suffix, value, ttl.Milliseconds(), strconv.FormatInt(gen, 10)).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GenCurrent returns the generation; an unset counter is generation 0.
func GenCurrent(ctx context.Context, rdb redis.Cmdable, genKey string) (int64, error) {
	if rdb == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	gen, err := rdb.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// GenBump advances the generation, invalidating every value written under earlier ones.
func GenBump(ctx context.Context, rdb redis.Cmdable, genKey string) (int64, error) {
	if rdb == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	return rdb.Incr(ctx, genKey).Result()
}
