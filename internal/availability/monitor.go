// Package availability tracks whether the metadata provider is answering, for
// the "data source unavailable" banner. It never gates other calls.
package availability

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Checker performs one availability probe.
type Checker interface {
	CheckAvailability(ctx context.Context) bool
}

// Status is the last known provider state.
type Status struct {
	Available bool       `json:"available"`
	Checked   bool       `json:"checked"`
	CheckedAt *time.Time `json:"checkedAt,omitempty"`
	ChangedAt *time.Time `json:"changedAt,omitempty"`
}

// ShowBanner reports whether the unavailable banner should be displayed.
// Nothing is shown before the first probe.
func (s Status) ShowBanner() bool {
	return s.Checked && !s.Available
}

// Monitor caches the result of periodic probes.
type Monitor struct {
	checker Checker
	clock   clockwork.Clock
	logger  zerolog.Logger

	mu     sync.RWMutex
	status Status
}

// NewMonitor creates a monitor that has not probed yet.
func NewMonitor(checker Checker, clock clockwork.Clock, logger zerolog.Logger) *Monitor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Monitor{
		checker: checker,
		clock:   clock,
		logger:  logger.With().Str("component", "availability").Logger(),
	}
}

// Refresh probes the provider and records the result. Its signature matches
// scheduler.TaskFunc; it never fails.
func (m *Monitor) Refresh(ctx context.Context) error {
	ok := m.checker.CheckAvailability(ctx)
	now := m.clock.Now()

	m.mu.Lock()
	prev := m.status
	m.status.Available = ok
	m.status.Checked = true
	m.status.CheckedAt = &now
	changed := !prev.Checked || prev.Available != ok
	if changed {
		m.status.ChangedAt = &now
	}
	m.mu.Unlock()

	if changed {
		if ok {
			m.logger.Info().Msg("Metadata provider available")
		} else {
			m.logger.Warn().Msg("Metadata provider unavailable")
		}
	}
	return nil
}

// Status returns the last recorded state.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
