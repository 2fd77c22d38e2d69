// Package player models one playback session: play and pause with a
// recoverable start failure, the orthogonal mute/fullscreen/progress fields and
// a transient reaction overlay fed by the realtime channel.
package player

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/marquee/marquee/internal/realtime"
)

const DefaultOverlayDuration = 2 * time.Second

// Session is a playback session. All methods are safe for concurrent use.
type Session struct {
	id              string
	movieID         string
	media           Media
	channel         Channel
	clock           clockwork.Clock
	overlayDuration time.Duration
	onClose         func()
	onOverlay       func(Overlay, bool)
	logger          zerolog.Logger

	mu          sync.Mutex
	state       State
	muted       bool
	fullscreen  bool
	progress    float64
	lastErr     error
	overlay     *Overlay
	overlayGen  uint64
	timer       clockwork.Timer
	unsubscribe func()
	channelOpen bool
	closeOnce   sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock driving the overlay timer.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) {
		s.clock = clock
	}
}

// WithOverlayDuration overrides how long a reaction stays on screen.
func WithOverlayDuration(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.overlayDuration = d
		}
	}
}

// WithOnClose registers a hook run once when the session closes, e.g. to
// restore the page's scroll state.
func WithOnClose(fn func()) Option {
	return func(s *Session) {
		s.onClose = fn
	}
}

// WithOverlayListener registers fn to be told when an overlay is shown
// (showing=true) and when it clears on its own (showing=false).
func WithOverlayListener(fn func(o Overlay, showing bool)) Option {
	return func(s *Session) {
		s.onOverlay = fn
	}
}

// WithMovieID tags the session with the movie being played.
func WithMovieID(id string) Option {
	return func(s *Session) {
		s.movieID = id
	}
}

// NewSession creates an idle session. channel may be nil for playback without
// reactions.
func NewSession(media Media, channel Channel, logger zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		id:              uuid.NewString(),
		media:           media,
		channel:         channel,
		clock:           clockwork.NewRealClock(),
		overlayDuration: DefaultOverlayDuration,
		state:           Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.With().Str("component", "player").Str("session", s.id).Str("movie", s.movieID).Logger()
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Start subscribes to reactions and makes the first playback attempt. A failed
// attempt leaves the session Paused with a retryable error; a realtime outage
// leaves it without overlays. Neither is returned as an error.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Closed:
		s.mu.Unlock()
		return ErrClosed
	case Idle:
	default:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = Paused
	s.mu.Unlock()

	s.attachChannel(ctx)
	s.attemptPlay(ctx)
	return nil
}

func (s *Session) attachChannel(ctx context.Context) {
	if s.channel == nil {
		return
	}
	if err := s.channel.Open(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Reactions unavailable for this session")
		return
	}
	unsubscribe := s.channel.Subscribe(s.handleEvent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		// Closed while dialing.
		unsubscribe()
		s.channel.Close()
		return
	}
	s.channelOpen = true
	s.unsubscribe = unsubscribe
}

func (s *Session) attemptPlay(ctx context.Context) {
	err := s.media.Play(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	if err != nil {
		s.state = Paused
		s.lastErr = err
		s.logger.Warn().Err(err).Msg("Playback could not start")
		return
	}
	s.state = Playing
	s.lastErr = nil
}

// TogglePlay pauses a playing session or attempts playback on a paused one.
func (s *Session) TogglePlay(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case Idle:
		return ErrNotStarted
	case Closed:
		return ErrClosed
	case Playing:
		if err := s.media.Pause(); err != nil {
			s.logger.Warn().Err(err).Msg("Pause failed")
		}
		s.mu.Lock()
		if s.state == Playing {
			s.state = Paused
		}
		s.mu.Unlock()
		return nil
	default:
		s.attemptPlay(ctx)
		return nil
	}
}

// Retry re-invokes a failed playback attempt.
func (s *Session) Retry(ctx context.Context) error {
	if !s.CanRetry() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == Closed {
			return ErrClosed
		}
		return ErrNothingToRetry
	}
	s.attemptPlay(ctx)
	return nil
}

// CanRetry reports whether the "try again" affordance should be offered.
func (s *Session) CanRetry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Paused && s.lastErr != nil
}

// LastError returns the most recent playback start failure, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// State returns the playback state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ToggleMute flips the muted flag and returns the new value.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	return s.muted
}

// ToggleFullscreen flips the fullscreen flag and returns the new value.
func (s *Session) ToggleFullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullscreen = !s.fullscreen
	return s.fullscreen
}

// Seek moves playback to fraction of the way through, clamped to [0,1].
func (s *Session) Seek(fraction float64) {
	s.SetProgress(fraction * 100)
}

// SetProgress records the playback position as a percentage, clamped to [0,100].
func (s *Session) SetProgress(percent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	s.progress = min(max(percent, 0), 100)
}

// React publishes a reaction for this session's viewers.
func (s *Session) React(ctx context.Context, kind realtime.Kind) error {
	s.mu.Lock()
	open := s.channelOpen
	closed := s.state == Closed
	s.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !open {
		return realtime.ErrClosed
	}
	return s.channel.Publish(ctx, kind)
}

// Overlay returns the reaction on screen, if any.
func (s *Session) Overlay() (Overlay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentOverlay()
}

func (s *Session) currentOverlay() (Overlay, bool) {
	if s.overlay == nil || !s.clock.Now().Before(s.overlay.ExpiresAt) {
		return Overlay{}, false
	}
	return *s.overlay, true
}

// handleEvent shows ev immediately, replacing any overlay on screen and
// restarting the clear timer from now.
func (s *Session) handleEvent(ev realtime.Event) {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	o := Overlay{Kind: ev.Kind, ShownAt: now, ExpiresAt: now.Add(s.overlayDuration)}
	s.overlay = &o
	s.overlayGen++
	gen := s.overlayGen

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.overlayDuration, func() { s.clearOverlay(gen) })
	listener := s.onOverlay
	s.mu.Unlock()

	s.logger.Debug().Str("kind", string(ev.Kind)).Msg("Showing reaction")
	if listener != nil {
		listener(o, true)
	}
}

func (s *Session) clearOverlay(gen uint64) {
	s.mu.Lock()
	if s.state == Closed || gen != s.overlayGen || s.overlay == nil {
		// Replaced or torn down since this timer was armed.
		s.mu.Unlock()
		return
	}
	o := *s.overlay
	s.overlay = nil
	s.timer = nil
	listener := s.onOverlay
	s.mu.Unlock()

	if listener != nil {
		listener(o, false)
	}
}

// Snapshot returns the session state for display.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:         s.id,
		MovieID:    s.movieID,
		State:      s.state.String(),
		Muted:      s.muted,
		Fullscreen: s.fullscreen,
		Progress:   s.progress,
		CanRetry:   s.state == Paused && s.lastErr != nil,
		Realtime:   s.channelOpen,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	if o, ok := s.currentOverlay(); ok {
		snap.Overlay = &o
	}
	return snap
}

// Close ends the session. It unsubscribes from reactions, cancels the overlay
// timer, releases the channel and runs the close hook. Only the first call has
// any effect.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		prev := s.state
		s.state = Closed
		s.overlay = nil
		s.overlayGen++
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		release := s.channelOpen
		s.channelOpen = false
		s.mu.Unlock()

		if prev == Playing {
			if pauseErr := s.media.Pause(); pauseErr != nil {
				s.logger.Debug().Err(pauseErr).Msg("Pause on close failed")
			}
		}
		if unsubscribe != nil {
			unsubscribe()
		}
		if release {
			err = s.channel.Close()
		}
		if s.onClose != nil {
			s.onClose()
		}
		s.logger.Debug().Str("from", prev.String()).Msg("Session closed")
	})
	return err
}
