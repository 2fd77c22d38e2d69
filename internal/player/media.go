package player

import (
	"context"
	"errors"
	"sync"
)

var ErrPlaybackBlocked = errors.New("playback was blocked")

// SimulatedMedia stands in for a real video element. It can be told to refuse
// the next n play attempts, mimicking an autoplay block.
type SimulatedMedia struct {
	mu       sync.Mutex
	playing  bool
	failures int
	plays    int
}

// NewSimulatedMedia returns media whose first failures play attempts fail.
func NewSimulatedMedia(failures int) *SimulatedMedia {
	return &SimulatedMedia{failures: failures}
}

func (m *SimulatedMedia) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	if m.failures > 0 {
		m.failures--
		return ErrPlaybackBlocked
	}
	m.playing = true
	return nil
}

func (m *SimulatedMedia) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	return nil
}

// Playing reports whether the media is currently playing.
func (m *SimulatedMedia) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// Attempts returns the number of Play calls so far.
func (m *SimulatedMedia) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plays
}
