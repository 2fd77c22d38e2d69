package health

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for health endpoints.
type Handlers struct {
	health *Service
}

// NewHandlers creates new health handlers.
func NewHandlers(health *Service) *Handlers {
	return &Handlers{health: health}
}

// RegisterRoutes registers health routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAll)
	g.GET("/summary", h.GetSummary)
	g.GET("/:category", h.GetByCategory)
	g.POST("/check", h.CheckAll)
	g.POST("/:category/check", h.CheckCategory)
}

// GetAll returns all health items grouped by category.
// GET /api/v1/health
func (h *Handlers) GetAll(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health.GetAll())
}

// GetSummary returns counts per category.
// GET /api/v1/health/summary
func (h *Handlers) GetSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.health.GetSummary())
}

// GetByCategory returns the items of one category.
// GET /api/v1/health/:category
func (h *Handlers) GetByCategory(c echo.Context) error {
	cat, ok := ParseCategory(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid category")
	}
	return c.JSON(http.StatusOK, h.health.GetByCategory(cat))
}

// CheckAll runs every probe and returns the refreshed items.
// POST /api/v1/health/check
func (h *Handlers) CheckAll(c echo.Context) error {
	if err := h.health.Run(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, h.health.GetAll())
}

// CheckCategory runs the probes of one category.
// POST /api/v1/health/:category/check
func (h *Handlers) CheckCategory(c echo.Context) error {
	cat, ok := ParseCategory(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid category")
	}
	if err := h.health.RunCategory(c.Request().Context(), cat); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, h.health.GetByCategory(cat))
}
