package availability

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	ok    bool
	calls int
}

func (s *stubChecker) CheckAvailability(context.Context) bool {
	s.calls++
	return s.ok
}

func TestMonitor_Refresh(t *testing.T) {
	clock := clockwork.NewFakeClock()
	checker := &stubChecker{ok: true}
	m := NewMonitor(checker, clock, zerolog.Nop())

	initial := m.Status()
	assert.False(t, initial.Checked)
	assert.False(t, initial.ShowBanner(), "no banner before the first probe")

	require.NoError(t, m.Refresh(context.Background()))
	st := m.Status()
	assert.True(t, st.Available)
	assert.False(t, st.ShowBanner())
	require.NotNil(t, st.ChangedAt)
	firstChange := *st.ChangedAt

	clock.Advance(5 * time.Minute)
	require.NoError(t, m.Refresh(context.Background()))
	st = m.Status()
	assert.Equal(t, firstChange, *st.ChangedAt, "unchanged result keeps the change time")
	assert.Equal(t, clock.Now(), *st.CheckedAt)

	checker.ok = false
	clock.Advance(5 * time.Minute)
	require.NoError(t, m.Refresh(context.Background()))
	st = m.Status()
	assert.True(t, st.ShowBanner())
	assert.Equal(t, clock.Now(), *st.ChangedAt)
	assert.Equal(t, 3, checker.calls)
}
