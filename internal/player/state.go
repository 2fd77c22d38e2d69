package player

import (
	"context"
	"errors"
	"time"

	"github.com/marquee/marquee/internal/realtime"
)

// State is the playback state of a session.
type State int

const (
	Idle State = iota
	Playing
	Paused
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	ErrNotStarted     = errors.New("session not started")
	ErrAlreadyStarted = errors.New("session already started")
	ErrClosed         = errors.New("session closed")
	ErrNothingToRetry = errors.New("no failed playback to retry")
)

// Media is the playback backend a session drives.
type Media interface {
	Play(ctx context.Context) error
	Pause() error
}

// Channel is the subset of the realtime channel a session uses.
type Channel interface {
	Open(ctx context.Context) error
	Close() error
	Publish(ctx context.Context, kind realtime.Kind) error
	Subscribe(handler realtime.Handler) (unsubscribe func())
}

// Overlay is a reaction currently on screen.
type Overlay struct {
	Kind      realtime.Kind `json:"kind"`
	ShownAt   time.Time     `json:"shownAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID         string   `json:"id"`
	MovieID    string   `json:"movieId"`
	State      string   `json:"state"`
	Muted      bool     `json:"muted"`
	Fullscreen bool     `json:"fullscreen"`
	Progress   float64  `json:"progress"`
	LastError  string   `json:"lastError,omitempty"`
	CanRetry   bool     `json:"canRetry"`
	Overlay    *Overlay `json:"overlay,omitempty"`
	Realtime   bool     `json:"realtime"`
}
