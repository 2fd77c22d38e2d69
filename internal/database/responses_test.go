package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee/marquee/internal/cache"
	"github.com/marquee/marquee/internal/database"
	"github.com/marquee/marquee/internal/testutil"
)

func TestResponseStore_PutGet(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := database.NewResponseStore(tdb.DB)
	ctx := context.Background()

	got, err := store.GetEntry(ctx, "search?s=batman&type=movie")
	require.NoError(t, err)
	assert.Nil(t, got)

	expires := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.PutEntry(ctx, cache.Entry{
		Key:       "search?s=batman&type=movie",
		Value:     []byte(`{"Response":"True"}`),
		ExpiresAt: expires,
	}))

	got, err = store.GetEntry(ctx, "search?s=batman&type=movie")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"Response":"True"}`, string(got.Value))
	assert.True(t, expires.Equal(got.ExpiresAt))

	// Upsert replaces body and expiry.
	require.NoError(t, store.PutEntry(ctx, cache.Entry{
		Key:       "search?s=batman&type=movie",
		Value:     []byte(`{"Response":"True","Search":[]}`),
		ExpiresAt: expires.Add(time.Hour),
	}))
	got, err = store.GetEntry(ctx, "search?s=batman&type=movie")
	require.NoError(t, err)
	assert.Contains(t, string(got.Value), "Search")
	assert.True(t, expires.Add(time.Hour).Equal(got.ExpiresAt))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestResponseStore_DeleteExpired(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := database.NewResponseStore(tdb.DB)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	entries := []cache.Entry{
		{Key: "a", Value: []byte("1"), ExpiresAt: now.Add(-time.Minute)},
		{Key: "b", Value: []byte("2"), ExpiresAt: now},
		{Key: "c", Value: []byte("3"), ExpiresAt: now.Add(time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, store.PutEntry(ctx, e))
	}

	removed, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed, "an entry expiring exactly now is stale")

	got, err := store.GetEntry(ctx, "c")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestResponseStore_BacksCache(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	store := database.NewResponseStore(tdb.DB)
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	warm := cache.New(cache.DefaultConfig(), cache.WithClock(clock), cache.WithStore(store), cache.WithLogger(tdb.Logger))
	warm.Set(ctx, "detail?i=tt1375666&plot=full", []byte(`{"Title":"Inception"}`))

	// A fresh process sees the persisted entry.
	cold := cache.New(cache.DefaultConfig(), cache.WithClock(clock), cache.WithStore(store))
	value, ok := cold.Get(ctx, "detail?i=tt1375666&plot=full")
	require.True(t, ok)
	assert.Equal(t, `{"Title":"Inception"}`, string(value))

	clock.Advance(time.Hour)
	restarted := cache.New(cache.DefaultConfig(), cache.WithClock(clock), cache.WithStore(store))
	_, ok = restarted.Get(ctx, "detail?i=tt1375666&plot=full")
	assert.False(t, ok, "expiry survives persistence")
}

func TestDB_MigrateDown(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	require.NoError(t, tdb.DB.MigrateDown())

	_, err := database.NewResponseStore(tdb.DB).Count(context.Background())
	assert.Error(t, err)

	require.NoError(t, tdb.DB.Migrate())
}
