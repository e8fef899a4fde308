package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayKey(t *testing.T) {
	assert.Equal(t, "song-1:sess-A", PlayKey("song-1", "sess-A"))
}

func TestMemoryRegistry_ClaimOncePerWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRegistry(24*time.Hour, 0)
	defer r.Close()
	r.SetClock(func() time.Time { return now })

	ok, err := r.Claim(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = r.Claim(ctx, "a")
	assert.False(t, ok)

	ok, _ = r.Claim(ctx, "b")
	assert.True(t, ok)

	now = now.Add(24*time.Hour - time.Second)
	ok, _ = r.Claim(ctx, "a")
	assert.False(t, ok)

	now = now.Add(2 * time.Second)
	ok, _ = r.Claim(ctx, "a")
	assert.True(t, ok, "expired claim must reopen the window")
}

func TestMemoryRegistry_Sweep(t *testing.T) {
	now := time.Unix(0, 0)
	r := NewMemoryRegistry(time.Minute, 0)
	defer r.Close()
	r.SetClock(func() time.Time { return now })

	_, _ = r.Claim(context.Background(), "a")
	_, _ = r.Claim(context.Background(), "b")
	assert.Equal(t, 2, r.Len())

	now = now.Add(time.Minute)
	assert.Equal(t, 2, r.Sweep())
	assert.Equal(t, 0, r.Len())
}

func TestMemoryRegistry_ConcurrentClaimsSingleWinner(t *testing.T) {
	r := NewMemoryRegistry(time.Hour, 0)
	defer r.Close()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := r.Claim(context.Background(), "k"); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners)
}

func TestMemoryRegistry_JanitorSweeps(t *testing.T) {
	r := NewMemoryRegistry(time.Millisecond, 5*time.Millisecond)
	defer r.Close()

	_, _ = r.Claim(context.Background(), "a")
	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, r.Close())
}

func TestRedisRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	r := NewRedisRegistry(client, 24*time.Hour)

	ok, err := r.Claim(ctx, "song-1:sess-A")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("play:session:song-1:sess-A"))

	ok, err = r.Claim(ctx, "song-1:sess-A")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(24*time.Hour + time.Second)
	ok, err = r.Claim(ctx, "song-1:sess-A")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisRegistry_Errors(t *testing.T) {
	_, err := NewRedisRegistry(nil, time.Hour).Claim(context.Background(), "k")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err = NewRedisRegistry(client, time.Hour).Claim(context.Background(), "k")
	assert.Error(t, err)
}
