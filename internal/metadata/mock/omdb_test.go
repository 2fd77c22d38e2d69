package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee/marquee/internal/metadata/omdb"
)

func TestOMDBClient_Search(t *testing.T) {
	c := NewOMDBClient()
	ctx := context.Background()

	results, err := c.Search(ctx, "2023")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "tt6791350", results[0].ImdbID)

	results, err = c.Search(ctx, "HORROR")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Hereditary", results[0].Title)

	_, err = c.Search(ctx, "zzz-no-such-title")
	assert.ErrorIs(t, err, omdb.ErrNotFound)

	_, err = c.Search(ctx, "   ")
	assert.ErrorIs(t, err, omdb.ErrNotFound)
}

func TestOMDBClient_Lookups(t *testing.T) {
	c := NewOMDBClient()
	ctx := context.Background()

	resp, err := c.GetByID(ctx, "tt0133093")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", resp.Title)

	resp, err = c.GetByTitle(ctx, " inception ")
	require.NoError(t, err)
	assert.Equal(t, "tt1375666", resp.ImdbID)

	_, err = c.GetByID(ctx, "tt0000000")
	assert.ErrorIs(t, err, omdb.ErrNotFound)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.GetByTitle(cancelled, "Inception")
	assert.ErrorIs(t, err, context.Canceled)
}
