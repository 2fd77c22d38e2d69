package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets browser hardening headers. API and metrics responses
// are marked uncacheable so catalog rows and status never go stale in a proxy.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "SAMEORIGIN")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			// Posters come from the provider's image host, so img-src stays open.
			h.Set("Content-Security-Policy", "default-src 'self'; img-src * data:; connect-src 'self' ws: wss:; frame-ancestors 'self'")

			path := c.Request().URL.Path
			if strings.HasPrefix(path, "/api") || path == "/metrics" {
				h.Set("Cache-Control", "no-store")
			}

			return next(c)
		}
	}
}
