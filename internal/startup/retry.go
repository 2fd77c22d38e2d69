package startup

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// RetryConfig bounds how often and how patiently an operation is retried.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Multiplier   float64
	Clock        clockwork.Clock
}

// DefaultRetryConfig returns defaults suited to dialing the local reaction relay.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		MaxAttempts:  3,
		Multiplier:   2.0,
	}
}

// delay returns the wait before the given retry (1-based), capped at MaxDelay.
func (c RetryConfig) delay(retry int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 1; i < retry; i++ {
		d *= c.Multiplier
		if c.MaxDelay > 0 && time.Duration(d) >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if c.MaxDelay > 0 && time.Duration(d) > c.MaxDelay {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// transientMessages match dial failures whose error types were flattened to
// strings by a client library.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"network is unreachable",
	"no route to host",
	"i/o timeout",
	"bad handshake",
}

// IsNetworkError reports whether err looks like the peer was unreachable
// rather than a permanent misconfiguration.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return strings.Contains(msg, "dial tcp")
}

// WithRetry runs fn until it succeeds, returns a non-network error, or
// MaxAttempts is reached. Waits grow by Multiplier between attempts.
func WithRetry(ctx context.Context, name string, cfg RetryConfig, fn func() error, logger *zerolog.Logger) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	log := logger.With().Str("operation", name).Logger()

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			if attempt > 1 {
				log.Info().Int("attempt", attempt).Msg("Succeeded after retry")
			}
			return nil
		}
		if !IsNetworkError(err) {
			log.Error().Err(err).Msg("Permanent failure, not retrying")
			return err
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		wait := cfg.delay(attempt)
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("maxAttempts", cfg.MaxAttempts).
			Dur("nextRetryIn", wait).
			Msg("Network error, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cfg.Clock.After(wait):
		}
	}

	log.Error().Err(err).Int("attempts", cfg.MaxAttempts).Msg("Giving up")
	return err
}
