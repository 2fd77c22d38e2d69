package metadata

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// MovieResponse is the API shape of a Movie with presentation fields resolved.
type MovieResponse struct {
	Movie           `yaml:",inline"`
	PosterURL       string `json:"posterUrl" yaml:"posterUrl"`
	MatchPercentage *int   `json:"matchPercentage,omitempty" yaml:"matchPercentage,omitempty"`
}

// NewMovieResponse resolves the poster placeholder and match badge for m.
func NewMovieResponse(m Movie, placeholder string) MovieResponse {
	resp := MovieResponse{Movie: m, PosterURL: m.PosterURL(placeholder)}
	if pct, ok := m.MatchPercentage(); ok {
		resp.MatchPercentage = &pct
	}
	return resp
}

// NewMovieResponses converts a list, preserving order.
func NewMovieResponses(movies []Movie, placeholder string) []MovieResponse {
	out := make([]MovieResponse, len(movies))
	for i, m := range movies {
		out[i] = NewMovieResponse(m, placeholder)
	}
	return out
}

// Handlers provides HTTP handlers for metadata operations.
type Handlers struct {
	service     *Service
	placeholder string
}

// NewHandlers creates new metadata handlers.
func NewHandlers(service *Service, placeholder string) *Handlers {
	return &Handlers{
		service:     service,
		placeholder: placeholder,
	}
}

// RegisterRoutes registers the metadata routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/movies/search", h.SearchMovies)
	g.GET("/movies/:id", h.GetMovie)
	g.GET("/categories/:tag", h.GetCategory)
	g.GET("/availability", h.GetAvailability)
}

// SearchMovies searches for movies by title.
// GET /api/v1/movies/search?query=...
func (h *Handlers) SearchMovies(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("query"))
	results := h.service.SearchByTitle(c.Request().Context(), query)

	return c.JSON(http.StatusOK, map[string]any{
		"query":   query,
		"results": NewMovieResponses(results, h.placeholder),
	})
}

// GetMovie gets full movie details by IMDb ID.
// GET /api/v1/movies/:id
func (h *Handlers) GetMovie(c echo.Context) error {
	movie, ok := h.service.FetchDetail(c.Request().Context(), c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "movie not found")
	}
	return c.JSON(http.StatusOK, NewMovieResponse(*movie, h.placeholder))
}

// GetCategory returns a themed row, falling back to the fixed catalog.
// GET /api/v1/categories/:tag
func (h *Handlers) GetCategory(c echo.Context) error {
	tag := c.Param("tag")
	movies := h.service.FetchByCategory(c.Request().Context(), tag)

	return c.JSON(http.StatusOK, map[string]any{
		"tag":    tag,
		"movies": NewMovieResponses(movies, h.placeholder),
	})
}

// GetAvailability probes the provider.
// GET /api/v1/availability
func (h *Handlers) GetAvailability(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{
		"available": h.service.CheckAvailability(c.Request().Context()),
	})
}
