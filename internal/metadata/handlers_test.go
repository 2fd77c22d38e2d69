package metadata

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee/marquee/internal/metadata/omdb"
)

func setupHandlers(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *echo.Echo {
	t.Helper()
	svc, _ := setupService(t, handler)

	e := echo.New()
	NewHandlers(svc, "/placeholder.svg").RegisterRoutes(e.Group("/api/v1"))
	return e
}

func doGet(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_SearchMovies(t *testing.T) {
	e := setupHandlers(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, omdb.SearchResponse{
			Response: "True",
			Search:   []omdb.SearchResult{{ImdbID: "tt0372784", Title: "Batman Begins", Poster: "N/A"}},
		})
	})

	rec := doGet(e, "/api/v1/movies/search?query=batman")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Query   string          `json:"query"`
		Results []MovieResponse `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "batman", body.Query)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "tt0372784", body.Results[0].ID)
	assert.Equal(t, "/placeholder.svg", body.Results[0].PosterURL)
}

func TestHandlers_SearchMovies_EmptyQuery(t *testing.T) {
	e := setupHandlers(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected provider call")
	})

	rec := doGet(e, "/api/v1/movies/search?query=%20%20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"","results":[]}`, rec.Body.String())
}

func TestHandlers_GetMovie(t *testing.T) {
	e := setupHandlers(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("i") != "tt1375666" {
			notFound(w, r)
			return
		}
		writeJSON(w, omdb.Response{Response: "True", ImdbID: "tt1375666", Title: "Inception", ImdbRating: "8.8"})
	})

	rec := doGet(e, "/api/v1/movies/tt1375666")
	require.Equal(t, http.StatusOK, rec.Code)

	var movie MovieResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &movie))
	assert.Equal(t, "Inception", movie.Title)
	require.NotNil(t, movie.MatchPercentage)
	assert.Equal(t, 88, *movie.MatchPercentage)

	rec = doGet(e, "/api/v1/movies/tt0000000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_GetCategory_Fallback(t *testing.T) {
	e := setupHandlers(t, notFound)

	rec := doGet(e, "/api/v1/categories/horror")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tag    string          `json:"tag"`
		Movies []MovieResponse `json:"movies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "horror", body.Tag)
	require.Len(t, body.Movies, 5)
	assert.Equal(t, "tt1375666", body.Movies[0].ID)
}

func TestHandlers_GetAvailability(t *testing.T) {
	e := setupHandlers(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	rec := doGet(e, "/api/v1/availability")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":false}`, rec.Body.String())
}
