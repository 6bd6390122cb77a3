package session

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/nilecart/internal/domain/cart"
)

func getRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedis_UpdateViewDelete(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	store := NewRedis(client, time.Minute)
	id := uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(ctx, id) })

	empty, err := store.View(ctx, id)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	_, err = store.Update(ctx, id, add(testProduct("p1", "3.25")))
	require.NoError(t, err)
	s, err := store.Update(ctx, id, add(testProduct("p1", "3.25")))
	require.NoError(t, err)
	assert.Equal(t, 2, s.ItemCount())

	ttl, err := client.TTL(ctx, redisKey(id)).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	viewed, err := store.View(ctx, id)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6.5").Equal(viewed.Total()))

	require.NoError(t, store.Delete(ctx, id))
	n, err := client.Exists(ctx, redisKey(id)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedis_ClearRemovesKey(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	store := NewRedis(client, time.Minute)
	id := uuid.NewString()

	_, err := store.Update(ctx, id, add(testProduct("p1", "1")))
	require.NoError(t, err)
	_, err = store.Update(ctx, id, func(e *cart.Engine) error {
		e.Clear()
		return nil
	})
	require.NoError(t, err)

	n, err := client.Exists(ctx, redisKey(id)).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedis_UpdateErrorDiscardsChanges(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	store := NewRedis(client, time.Minute)
	id := uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(ctx, id) })

	_, err := store.Update(ctx, id, add(testProduct("p1", "1")))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = store.Update(ctx, id, func(e *cart.Engine) error {
		e.Clear()
		return boom
	})
	require.Equal(t, boom, err)

	s, err := store.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestRedis_ConcurrentUpdates(t *testing.T) {
	client := getRedisClient(t)
	ctx := context.Background()
	store := NewRedis(client, time.Minute)
	id := uuid.NewString()
	t.Cleanup(func() { _ = store.Delete(ctx, id) })

	const workers = 4
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, id, add(testProduct("p1", "1")))
			if err != nil {
				assert.ErrorIs(t, err, ErrConflict)
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	s, err := store.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, succeeded, s.ItemCount(), "no lost updates")
}
