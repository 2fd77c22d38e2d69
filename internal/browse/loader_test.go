package browse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee/marquee/internal/metadata"
)

// gatedFetcher blocks each row until its gate is released.
type gatedFetcher struct {
	mu        sync.Mutex
	gates     map[string]chan struct{}
	available bool
	calls     map[string]int
}

func newGatedFetcher(rows ...string) *gatedFetcher {
	f := &gatedFetcher{gates: make(map[string]chan struct{}), calls: make(map[string]int), available: true}
	for _, r := range rows {
		f.gates[r] = make(chan struct{})
	}
	return f
}

func (f *gatedFetcher) release(row string) {
	close(f.gates[row])
}

func (f *gatedFetcher) wait(row string) []metadata.Movie {
	f.mu.Lock()
	f.calls[row]++
	gate, ok := f.gates[row]
	f.mu.Unlock()
	if ok {
		<-gate
	}
	return []metadata.Movie{{ID: "tt-" + row, Title: row}}
}

func (f *gatedFetcher) FetchTrending(context.Context) []metadata.Movie { return f.wait("trending") }
func (f *gatedFetcher) FetchPopular(context.Context) []metadata.Movie  { return f.wait("popular") }
func (f *gatedFetcher) FetchByCategory(_ context.Context, tag string) []metadata.Movie {
	return f.wait(tag)
}
func (f *gatedFetcher) CheckAvailability(context.Context) bool { return f.available }

func TestDefaultRows(t *testing.T) {
	rows := DefaultRows([]string{"action", "comedy", "horror", "romance", " ", "western"})

	titles := make([]string, len(rows))
	for i, r := range rows {
		titles[i] = r.Title
	}
	assert.Equal(t, []string{
		"Trending Now", "Popular Movies", "Action Movies", "Comedies", "Horror", "Romance", "Western",
	}, titles)
	assert.Equal(t, KindGenre, rows[6].Kind)
	assert.Equal(t, "western", rows[6].Tag)
}

func TestGenreTitle(t *testing.T) {
	assert.Equal(t, "Comedies", GenreTitle("Comedy"))
	assert.Equal(t, "Film Noir", GenreTitle("film noir"))
}

func TestLoader_StreamHasNoBarrier(t *testing.T) {
	f := newGatedFetcher("trending", "popular", "horror")
	loader := NewLoader(f, DefaultRows([]string{"horror"}), zerolog.Nop())

	emitted := make(chan Row, 3)
	done := make(chan error, 1)
	go func() {
		done <- loader.Stream(context.Background(), func(r Row) { emitted <- r })
	}()

	// The last declared row resolves first and is delivered while the
	// others are still pending.
	f.release("horror")
	select {
	case r := <-emitted:
		assert.Equal(t, "horror", r.ID)
		assert.Equal(t, 2, r.Index)
	case <-time.After(5 * time.Second):
		t.Fatal("horror row not emitted while others pending")
	}

	f.release("trending")
	r := <-emitted
	assert.Equal(t, "trending", r.ID)

	f.release("popular")
	require.NoError(t, <-done)
	assert.Equal(t, "popular", (<-emitted).ID)
}

func TestLoader_LoadKeepsDeclaredOrder(t *testing.T) {
	f := newGatedFetcher()
	loader := NewLoader(f, DefaultRows([]string{"action", "romance"}), zerolog.Nop())

	rows := loader.Load(context.Background())
	require.Len(t, rows, 4)
	assert.Equal(t, "trending", rows[0].ID)
	assert.Equal(t, "popular", rows[1].ID)
	assert.Equal(t, "action", rows[2].ID)
	assert.Equal(t, "romance", rows[3].ID)
	assert.Equal(t, "tt-romance", rows[3].Movies[0].ID)
}

func TestLoader_Home(t *testing.T) {
	f := newGatedFetcher()
	f.available = false
	loader := NewLoader(f, DefaultRows([]string{"comedy"}), zerolog.Nop())

	home := loader.Home(context.Background())
	require.NotNil(t, home.Featured)
	assert.Equal(t, "tt-trending", home.Featured.ID)
	assert.False(t, home.Available)
	assert.Len(t, home.Rows, 3)
}

func TestLoader_StreamIntoDropsStaleRows(t *testing.T) {
	f := newGatedFetcher("trending", "popular")
	loader := NewLoader(f, DefaultRows(nil), zerolog.Nop())
	view := &View{}

	var mu sync.Mutex
	var applied []string
	done := make(chan int, 1)
	go func() {
		done <- loader.StreamInto(context.Background(), view, func(r Row) {
			mu.Lock()
			applied = append(applied, r.ID)
			mu.Unlock()
		})
	}()

	f.release("popular")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) == 1
	}, 5*time.Second, 5*time.Millisecond)

	// The page goes away while trending is still in flight.
	view.Dispose()
	f.release("trending")

	assert.Equal(t, 1, <-done)
	mu.Lock()
	assert.Equal(t, []string{"popular"}, applied)
	mu.Unlock()
	assert.Equal(t, 1, f.calls["trending"], "in-flight fetch is not cancelled")
}

func TestView_NewerLoadWins(t *testing.T) {
	v := &View{}
	first := v.Begin()
	second := v.Begin()

	assert.False(t, v.Apply(first, func() { t.Error("stale generation applied") }))

	ran := false
	assert.True(t, v.Apply(second, func() { ran = true }))
	assert.True(t, ran)

	v.Dispose()
	assert.True(t, v.Disposed())
	assert.False(t, v.Apply(second, func() { t.Error("applied after dispose") }))
}

func TestHandlers_GetHome(t *testing.T) {
	f := newGatedFetcher()
	loader := NewLoader(f, DefaultRows([]string{"horror"}), zerolog.Nop())

	e := echo.New()
	NewHandlers(loader, "/placeholder.svg").RegisterRoutes(e.Group("/api/v1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/home", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body HomeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Available)
	require.NotNil(t, body.Featured)
	assert.Equal(t, "/placeholder.svg", body.Featured.PosterURL)
	require.Len(t, body.Rows, 3)
	assert.Equal(t, "Horror", body.Rows[2].Title)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/rows", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Trending Now"`)
}
