package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewMemoryStoreWithClock(clock.Now), clock
}

func TestMemoryStore_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 1000*time.Millisecond))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	clock.Advance(1000 * time.Millisecond)
	_, ok, _ = store.Get(ctx, "k")
	assert.True(t, ok, "entry is still valid exactly at expiry")

	clock.Advance(time.Millisecond)
	got, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 0, store.Len(), "expired entry is evicted on read")
}

func TestMemoryStore_ClearPatternSpansNewlines(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	require.NoError(t, store.Set(ctx, "course:structure:a\nb", []byte("x"), time.Hour))
	require.NoError(t, store.Set(ctx, "progress:\n", []byte("x"), time.Hour))

	require.NoError(t, store.ClearPattern(ctx, NamespaceCourse))

	_, ok, _ := store.Get(ctx, "course:structure:a\nb")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_ClearAllEmptiesStore(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()
	require.NoError(t, store.Set(ctx, "course:1", []byte("x"), time.Hour))
	require.NoError(t, store.Set(ctx, "session:1", []byte("y"), time.Hour))

	require.NoError(t, store.ClearAll(ctx))
	assert.Equal(t, 0, store.Len())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	type payload struct {
		ID    uint   `json:"id"`
		Title string `json:"title"`
	}

	require.NoError(t, SetJSON(ctx, store, "course:active", payload{ID: 3, Title: "Go"}, time.Minute))

	var got payload
	ok, err := GetJSON(ctx, store, "course:active", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload{ID: 3, Title: "Go"}, got)

	require.NoError(t, store.Set(ctx, "course:broken", []byte("{"), time.Minute))
	ok, err = GetJSON(ctx, store, "course:broken", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("course:%d:%d", i, j)
				_ = store.Set(ctx, key, []byte("x"), time.Minute)
				_, _, _ = store.Get(ctx, key)
				if j%10 == 0 {
					_ = store.ClearPattern(ctx, "course:*")
				}
			}
		}(i)
	}
	wg.Wait()
}
