package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/nilecart/internal/domain/cart"
)

func testProduct(id string, price string) cart.Product {
	return cart.Product{
		ID:       id,
		Name:     "Product " + id,
		Category: "Groceries",
		Price:    decimal.RequireFromString(price),
		InStock:  true,
	}
}

func add(p cart.Product) func(*cart.Engine) error {
	return func(e *cart.Engine) error {
		e.Add(p)
		return nil
	}
}

func TestMemory_UnknownSessionIsEmpty(t *testing.T) {
	m := NewMemory(time.Hour)

	s, err := m.View(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, cart.State{}, s)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_UpdateAndView(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)

	_, err := m.Update(ctx, "s1", add(testProduct("p1", "10")))
	require.NoError(t, err)
	s, err := m.Update(ctx, "s1", add(testProduct("p1", "10")))
	require.NoError(t, err)
	assert.Equal(t, 2, s.ItemCount())

	other, err := m.View(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, other.IsEmpty(), "sessions are isolated")

	viewed, err := m.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s, viewed)
}

func TestMemory_UpdateErrorDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)
	_, err := m.Update(ctx, "s1", add(testProduct("p1", "10")))
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = m.Update(ctx, "s1", func(e *cart.Engine) error {
		e.Clear()
		return boom
	})
	require.Equal(t, boom, err)

	s, err := m.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestMemory_ConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)
	p := testProduct("p1", "1.50")

	const workers = 32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Update(ctx, "shared", add(p))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s, err := m.View(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, workers, s.ItemCount())
	assert.True(t, decimal.RequireFromString("48").Equal(s.Total()))
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)
	_, err := m.Update(ctx, "s1", add(testProduct("p1", "10")))
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "s1"))
	require.NoError(t, m.Delete(ctx, "s1"))

	s, err := m.View(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
}

func TestMemory_Evict(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour)
	m.now = func() time.Time { return now }

	_, err := m.Update(ctx, "old", add(testProduct("p1", "10")))
	require.NoError(t, err)

	now = now.Add(50 * time.Minute)
	_, err = m.Update(ctx, "fresh", add(testProduct("p2", "5")))
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, m.Evict())
	assert.Equal(t, 1, m.Len())

	s, err := m.View(ctx, "old")
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())

	s, err = m.View(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestMemory_UpdateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemory(0).Update(ctx, "s1", add(testProduct("p1", "1")))
	require.ErrorIs(t, err, context.Canceled)
}
