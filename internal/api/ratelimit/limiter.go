package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
)

const DefaultWindow = time.Minute

type ipBucket struct {
	count     int64
	resetTime time.Time
}

// Limiter is a fixed-window request counter keyed by client IP.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*ipBucket

	limit  int64
	window time.Duration
	clock  clockwork.Clock
}

// New creates a limiter allowing limit requests per window for each IP.
// A nil clock means wall time; a non-positive window means DefaultWindow.
func New(limit int, window time.Duration, clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		buckets: make(map[string]*ipBucket),
		limit:   int64(limit),
		window:  window,
		clock:   clock,
	}
}

// Middleware rejects requests over the limit with 429.
func (l *Limiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many reactions, slow down")
			}
			return next(c)
		}
	}
}

// Allow counts one request for key and reports whether it fits the window.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()

	bucket, exists := l.buckets[key]
	if !exists || !now.Before(bucket.resetTime) {
		l.buckets[key] = &ipBucket{
			count:     1,
			resetTime: now.Add(l.window),
		}
		return true
	}

	if bucket.count >= l.limit {
		return false
	}

	bucket.count++
	return true
}

// Cleanup drops buckets whose window has ended and returns how many went.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	removed := 0
	for ip, bucket := range l.buckets {
		if !now.Before(bucket.resetTime) {
			delete(l.buckets, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
