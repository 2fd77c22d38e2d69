package browse

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marquee/marquee/internal/metadata"
)

// HomeResponse is the API shape of the home page.
type HomeResponse struct {
	Featured  *metadata.MovieResponse `json:"featured,omitempty"`
	Rows      []RowResponse           `json:"rows"`
	Available bool                    `json:"available"`
}

// RowResponse is the API shape of a row.
type RowResponse struct {
	RowSpec `yaml:",inline"`
	Movies  []metadata.MovieResponse `json:"movies"`
}

// NewHomeResponse resolves posters and match badges for every movie on h.
func NewHomeResponse(h Home, placeholder string) HomeResponse {
	resp := HomeResponse{
		Rows:      make([]RowResponse, len(h.Rows)),
		Available: h.Available,
	}
	if h.Featured != nil {
		featured := metadata.NewMovieResponse(*h.Featured, placeholder)
		resp.Featured = &featured
	}
	for i, r := range h.Rows {
		resp.Rows[i] = RowResponse{RowSpec: r.RowSpec, Movies: metadata.NewMovieResponses(r.Movies, placeholder)}
	}
	return resp
}

// Handlers serves the composed home page.
type Handlers struct {
	loader      *Loader
	placeholder string
}

// NewHandlers creates browse handlers.
func NewHandlers(loader *Loader, placeholder string) *Handlers {
	return &Handlers{loader: loader, placeholder: placeholder}
}

// RegisterRoutes registers the browse routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/home", h.GetHome)
	g.GET("/rows", h.ListRows)
}

// GetHome returns every row plus the featured movie and availability flag.
// GET /api/v1/home
func (h *Handlers) GetHome(c echo.Context) error {
	home := h.loader.Home(c.Request().Context())
	return c.JSON(http.StatusOK, NewHomeResponse(home, h.placeholder))
}

// ListRows returns the declared row layout without fetching.
// GET /api/v1/rows
func (h *Handlers) ListRows(c echo.Context) error {
	return c.JSON(http.StatusOK, h.loader.Rows())
}
