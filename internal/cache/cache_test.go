package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	gets    int
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]Entry)}
}

func (s *memStore) GetEntry(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *memStore) PutEntry(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key] = entry
	return nil
}

func (s *memStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, k)
			n++
		}
	}
	return n, nil
}

func TestCache_SetGet(t *testing.T) {
	c := New(Config{TTL: time.Minute, MaxItems: 100})
	ctx := context.Background()

	c.Set(ctx, "s=batman&type=movie", []byte(`{"Response":"True"}`))

	val, ok := c.Get(ctx, "s=batman&type=movie")
	require.True(t, ok)
	assert.Equal(t, `{"Response":"True"}`, string(val))

	_, ok = c.Get(ctx, "s=superman&type=movie")
	assert.False(t, ok)
}

func TestCache_ExpiryWithFakeClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(Config{TTL: time.Hour, MaxItems: 100}, WithClock(clock))
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))

	clock.Advance(59 * time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok, "entry should still be fresh just before the TTL")

	clock.Advance(time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "entry should be stale exactly at the TTL")
}

func TestCache_SetRefreshesExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(Config{TTL: time.Hour}, WithClock(clock))
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v1"))
	clock.Advance(45 * time.Minute)
	c.Set(ctx, "k", []byte("v2"))
	clock.Advance(45 * time.Minute)

	val, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v2", string(val))
}

func TestCache_Sweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(Config{TTL: time.Minute}, WithClock(clock))
	ctx := context.Background()

	c.Set(ctx, "old", []byte("1"))
	clock.Advance(30 * time.Second)
	c.Set(ctx, "new", []byte("2"))
	clock.Advance(45 * time.Second)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Sweep(ctx))
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get(ctx, "new")
	assert.True(t, ok)
}

func TestCache_EvictsWhenFull(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(Config{TTL: time.Hour, MaxItems: 10}, WithClock(clock))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"))
		clock.Advance(time.Second)
	}
	require.Equal(t, 10, c.Len())

	c.Set(ctx, "k10", []byte("v"))

	assert.Equal(t, 10, c.Len())
	_, ok := c.Get(ctx, "k0")
	assert.False(t, ok, "soonest-to-expire entry should have been evicted")
	_, ok = c.Get(ctx, "k10")
	assert.True(t, ok)
}

func TestCache_StoreTier(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := newMemStore()
	ctx := context.Background()

	writer := New(Config{TTL: time.Hour}, WithClock(clock), WithStore(store))
	writer.Set(ctx, "k", []byte("persisted"))

	// A fresh process sees the persisted value with its original expiry.
	reader := New(Config{TTL: time.Hour}, WithClock(clock), WithStore(store))
	clock.Advance(30 * time.Minute)

	val, ok := reader.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "persisted", string(val))
	assert.Equal(t, 1, reader.Len(), "store hit should be promoted to memory")

	clock.Advance(30 * time.Minute)
	_, ok = reader.Get(ctx, "k")
	assert.False(t, ok, "promotion must not extend the original expiry")

	assert.Equal(t, 2, reader.Sweep(ctx), "sweep should clear memory and store")
}
