// Package interaction classifies raw clicks into single and double clicks.
package interaction

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultWindow is the longest gap between two clicks of a double click.
const DefaultWindow = 300 * time.Millisecond

// Result is the outcome of feeding the classifier.
type Result int

const (
	// Pending means a first click is waiting for a possible second one.
	Pending Result = iota
	SingleClick
	DoubleClick
	// None means there was nothing to resolve.
	None
)

func (r Result) String() string {
	switch r {
	case Pending:
		return "pending"
	case SingleClick:
		return "single"
	case DoubleClick:
		return "double"
	default:
		return "none"
	}
}

// Classifier is a two-state machine: Idle, or PendingSingle until a deadline.
// A second click before the deadline yields DoubleClick; reaching the deadline
// yields SingleClick, delivered to the OnSingle callback by a timer or returned
// by Tick, whichever observes it first. Each first click resolves exactly once.
// Double clicks are returned by Click and also delivered to OnDouble.
type Classifier struct {
	clock    clockwork.Clock
	window   time.Duration
	onSingle func()
	onDouble func()

	mu       sync.Mutex
	pending  bool
	deadline time.Time
	gen      uint64
	timer    clockwork.Timer
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock sets the clock; tests use a fake one.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Classifier) {
		c.clock = clock
	}
}

// WithWindow overrides the double click window.
func WithWindow(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.window = d
		}
	}
}

// OnSingle registers a callback fired when the window lapses after a lone click.
func OnSingle(fn func()) Option {
	return func(c *Classifier) {
		c.onSingle = fn
	}
}

// OnDouble registers a callback fired synchronously by the Click that
// completes a double click.
func OnDouble(fn func()) Option {
	return func(c *Classifier) {
		c.onDouble = fn
	}
}

// NewClassifier returns an idle classifier.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		clock:  clockwork.NewRealClock(),
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Click feeds one click. It returns DoubleClick when it completes a pair and
// Pending when it starts a new window.
func (c *Classifier) Click() Result {
	c.mu.Lock()
	now := c.clock.Now()

	if c.pending && now.Before(c.deadline) {
		c.reset()
		c.mu.Unlock()
		if c.onDouble != nil {
			c.onDouble()
		}
		return DoubleClick
	}

	// A lapsed first click the timer has not delivered yet resolves now.
	stale := c.pending
	c.reset()

	c.pending = true
	c.deadline = now.Add(c.window)
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.window, func() { c.expire(gen) })
	c.mu.Unlock()

	if stale {
		c.fireSingle()
	}
	return Pending
}

// Tick resolves a lapsed first click without waiting for the timer. It
// returns SingleClick at most once per first click.
func (c *Classifier) Tick() Result {
	c.mu.Lock()
	if !c.pending {
		c.mu.Unlock()
		return None
	}
	if c.clock.Now().Before(c.deadline) {
		c.mu.Unlock()
		return Pending
	}
	c.reset()
	c.mu.Unlock()

	c.fireSingle()
	return SingleClick
}

// Pending reports whether a first click is awaiting resolution.
func (c *Classifier) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Stop cancels any pending click without firing it.
func (c *Classifier) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Classifier) expire(gen uint64) {
	c.mu.Lock()
	if !c.pending || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.reset()
	c.mu.Unlock()

	c.fireSingle()
}

// reset returns to Idle. Callers hold mu.
func (c *Classifier) reset() {
	c.pending = false
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Classifier) fireSingle() {
	if c.onSingle != nil {
		c.onSingle()
	}
}
