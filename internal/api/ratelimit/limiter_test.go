package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(2, time.Minute, clock)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "limits are per key")

	clock.Advance(time.Minute)
	assert.True(t, l.Allow("10.0.0.1"), "window reset")
}

func TestLimiter_ZeroLimitDisables(t *testing.T) {
	l := New(0, time.Minute, nil)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("10.0.0.1"))
	}
	assert.Zero(t, l.Len())
}

func TestLimiter_Cleanup(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := New(5, time.Minute, clock)

	l.Allow("a")
	clock.Advance(30 * time.Second)
	l.Allow("b")
	assert.Equal(t, 2, l.Len())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 1, l.Cleanup())
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_Middleware(t *testing.T) {
	e := echo.New()
	l := New(1, time.Minute, clockwork.NewFakeClock())
	e.POST("/react", func(c echo.Context) error {
		return c.NoContent(http.StatusAccepted)
	}, l.Middleware())

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/react", nil)
		req.RemoteAddr = "192.0.2.7:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusAccepted, http.StatusTooManyRequests}, codes)
}
