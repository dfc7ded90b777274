package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, testPrefix), mr
}

func TestRedisStore_KeysArePrefixed(t *testing.T) {
	store, mr := newRedisStore(t)
	require.NoError(t, store.Set(context.Background(), "course:active", []byte("x"), time.Minute))

	assert.True(t, mr.Exists(testPrefix+"course:active"))
	assert.False(t, mr.Exists("course:active"))
	assert.Equal(t, time.Minute, mr.TTL(testPrefix+"course:active"))
}

func TestRedisStore_ClearAllKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, mr.Set("captcha:abc", "1234"))
	require.NoError(t, mr.Set("course:1", "unprefixed"))
	require.NoError(t, store.Set(ctx, "course:1", []byte("x"), time.Hour))
	require.NoError(t, store.Set(ctx, "progress:1", []byte("y"), time.Hour))

	require.NoError(t, store.ClearAll(ctx))

	assert.False(t, mr.Exists(testPrefix+"course:1"))
	assert.False(t, mr.Exists(testPrefix+"progress:1"))
	assert.True(t, mr.Exists("captcha:abc"))
	assert.True(t, mr.Exists("course:1"))
}

func TestRedisStore_ClearPatternScansAllPages(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	for i := 0; i < scanBatch*2+50; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("course:structure:%d", i), []byte("x"), time.Hour))
	}
	require.NoError(t, store.Set(ctx, "progress:1", []byte("x"), time.Hour))

	require.NoError(t, store.ClearPattern(ctx, NamespaceCourse))
	assert.Equal(t, []string{testPrefix + "progress:1"}, mr.Keys())
}

func TestRedisStore_PropagatesErrors(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	mr.SetError("ERR server unavailable")

	_, ok, err := store.Get(ctx, "course:active")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, store.Set(ctx, "course:active", []byte("x"), time.Minute))
	assert.Error(t, store.ClearPattern(ctx, NamespaceCourse))
}

func TestRedisPattern(t *testing.T) {
	assert.Equal(t, "course:*", redisPattern("course:*"))
	assert.Equal(t, `a\?b\[1\]*`, redisPattern("a?b[1]*"))
	assert.Equal(t, "progress:1", redisPattern("progress:1"))
}
