package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"paricus-portal/internal/config"
	"paricus-portal/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real server: REDIS_TEST_ADDR=localhost:6379 go test ./internal/cache/...
func TestRedisLayer_FlushInvalidatesAllCategories(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer rdb.Close()

	ns := "cdrtest-" + uuid.NewString()
	l := NewRedisLayer(rdb, ns, config.CacheConfig{PageTTL: time.Minute, CountTTL: time.Minute, LookupTTL: time.Minute})

	for _, cat := range []Category{Pages, Counts, Lookups} {
		wrote, err := l.Put(ctx, l.Begin(ctx), cat, "k", 7)
		require.NoError(t, err)
		require.True(t, wrote)
	}
	var n int
	hit, err := l.Get(ctx, Counts, "k", &n)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 7, n)

	require.NoError(t, l.FlushAll(ctx))
	for _, cat := range []Category{Pages, Counts, Lookups} {
		hit, err := l.Get(ctx, cat, "k", &n)
		require.NoError(t, err)
		assert.False(t, hit)
	}

	// A write started before another replica's flush must not land in the new generation.
	replica := NewRedisLayer(rdb, ns, config.CacheConfig{PageTTL: time.Minute, CountTTL: time.Minute, LookupTTL: time.Minute})
	observed := l.Begin(ctx)
	require.NoError(t, replica.FlushAll(ctx))
	wrote, err := l.Put(ctx, observed, Pages, "k", 8)
	require.NoError(t, err)
	assert.False(t, wrote)
	hit, err = replica.Get(ctx, Pages, "k", &n)
	require.NoError(t, err)
	assert.False(t, hit)

	_ = rdb.Del(ctx, ns+":gen").Err()
}
