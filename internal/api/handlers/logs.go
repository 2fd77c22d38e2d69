package handlers

import (
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marquee/marquee/internal/logger"
)

// LogsProvider gives access to recent log entries and the log file.
type LogsProvider interface {
	Recent() *logger.LogBuffer
	FilePath() string
}

// LogsHandler serves the in-memory log tail.
type LogsHandler struct {
	provider LogsProvider
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(provider LogsProvider) *LogsHandler {
	return &LogsHandler{provider: provider}
}

// RegisterRoutes registers log routes on the given group.
func (h *LogsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetRecentLogs)
	g.GET("/download", h.DownloadLogFile)
}

// GetRecentLogs returns buffered entries, oldest first.
// GET /api/v1/logs?limit=100&level=warn
func (h *LogsHandler) GetRecentLogs(c echo.Context) error {
	buf := h.provider.Recent()
	if buf == nil {
		return c.JSON(http.StatusOK, []logger.LogEntry{})
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}

	minLevel := zerolog.TraceLevel
	if raw := c.QueryParam("level"); raw != "" {
		minLevel = logger.ParseLevel(raw)
	}

	return c.JSON(http.StatusOK, buf.Recent(limit, minLevel))
}

// DownloadLogFile serves the current log file.
// GET /api/v1/logs/download
func (h *LogsHandler) DownloadLogFile(c echo.Context) error {
	path := h.provider.FilePath()
	if path == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no log file configured")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return echo.NewHTTPError(http.StatusNotFound, "log file not found")
	}
	return c.Attachment(path, "marquee.log")
}
