package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/marquee/marquee/internal/api/handlers"
	apimw "github.com/marquee/marquee/internal/api/middleware"
	"github.com/marquee/marquee/internal/api/ratelimit"
	"github.com/marquee/marquee/internal/availability"
	"github.com/marquee/marquee/internal/browse"
	"github.com/marquee/marquee/internal/config"
	"github.com/marquee/marquee/internal/health"
	"github.com/marquee/marquee/internal/metadata"
	"github.com/marquee/marquee/internal/realtime"
	"github.com/marquee/marquee/internal/scheduler"
	"github.com/marquee/marquee/internal/websocket"
	"github.com/marquee/marquee/web"
)

// Deps are the services the HTTP server fronts. Everything past Hub is
// optional.
type Deps struct {
	Metadata  *metadata.Service
	Loader    *browse.Loader
	Monitor   *availability.Monitor
	Hub       *websocket.Hub
	Scheduler *scheduler.Scheduler
	Limiter   *ratelimit.Limiter
	Health    *health.Service
	Logs      handlers.LogsProvider
}

// Server handles HTTP requests.
type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	deps   Deps
	logger zerolog.Logger
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:   e,
		cfg:    cfg,
		deps:   deps,
		logger: logger.With().Str("component", "api").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(apimw.Tracing())
	s.echo.Use(apimw.SecurityHeaders())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Debug().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("Upgrade") == "websocket"
		},
	}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET(web.PlaceholderPath, s.placeholder)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)

	placeholder := s.cfg.OMDB.PlaceholderImage
	if s.deps.Metadata != nil {
		metadata.NewHandlers(s.deps.Metadata, placeholder).RegisterRoutes(api)
	}
	if s.deps.Loader != nil {
		browse.NewHandlers(s.deps.Loader, placeholder).RegisterRoutes(api)
	}

	if s.deps.Hub != nil {
		s.echo.GET("/ws", s.deps.Hub.HandleWebSocket)
		api.GET("/reactions", s.deps.Hub.HandleHistory)

		var mws []echo.MiddlewareFunc
		if s.deps.Limiter != nil {
			mws = append(mws, s.deps.Limiter.Middleware())
		}
		api.POST("/reactions", s.postReaction, mws...)
	}

	if s.deps.Scheduler != nil {
		handlers.NewSchedulerHandler(s.deps.Scheduler).RegisterRoutes(api.Group("/scheduler"))
	}

	if s.deps.Logs != nil {
		handlers.NewLogsHandler(s.deps.Logs).RegisterRoutes(api.Group("/logs"))
	}

	if s.deps.Health != nil {
		health.NewHandlers(s.deps.Health).RegisterRoutes(api.Group("/health"))
	}
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")

	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// --- Handler implementations ---

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) placeholder(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Blob(http.StatusOK, "image/svg+xml", web.Placeholder())
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Version   string                `json:"version"`
	Provider  ProviderStatus        `json:"provider"`
	Relay     *websocket.Stats      `json:"relay,omitempty"`
	Transport string                `json:"transport"`
	Tasks     []scheduler.TaskInfo  `json:"tasks,omitempty"`
	Health    *health.HealthSummary `json:"health,omitempty"`
}

// ProviderStatus is the availability banner state.
type ProviderStatus struct {
	availability.Status
	ShowBanner bool `json:"showBanner"`
}

func (s *Server) getStatus(c echo.Context) error {
	resp := StatusResponse{
		Version:   config.Version,
		Transport: s.cfg.Realtime.Transport,
	}
	if s.deps.Monitor != nil {
		st := s.deps.Monitor.Status()
		resp.Provider = ProviderStatus{Status: st, ShowBanner: st.ShowBanner()}
	}
	if s.deps.Hub != nil {
		stats := s.deps.Hub.Stats()
		resp.Relay = &stats
	}
	if s.deps.Scheduler != nil {
		resp.Tasks = s.deps.Scheduler.ListTasks()
	}
	if s.deps.Health != nil {
		resp.Health = s.deps.Health.GetSummary()
	}
	return c.JSON(http.StatusOK, resp)
}

type reactionRequest struct {
	Kind string `json:"kind"`
}

// postReaction relays a reaction to every connected client.
// POST /api/v1/reactions
func (s *Server) postReaction(c echo.Context) error {
	var req reactionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	kind, err := realtime.ParseKind(req.Kind)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := s.deps.Hub.Relay(kind); err != nil {
		if errors.Is(err, websocket.ErrStopped) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return err
	}
	return c.JSON(http.StatusAccepted, map[string]string{"kind": string(kind)})
}
