package websocket

import (
	"sync"
	"time"

	"github.com/marquee/marquee/internal/realtime"
)

// Reaction is one relayed reaction.
type Reaction struct {
	Kind realtime.Kind `json:"kind"`
	At   time.Time     `json:"at"`
}

// History keeps the most recent reactions in a fixed-size circular buffer.
type History struct {
	mu      sync.RWMutex
	entries []Reaction
	next    int
	count   int
	total   uint64
}

// NewHistory creates a history holding at most capacity reactions.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{entries: make([]Reaction, capacity)}
}

// Add records r, overwriting the oldest entry when full.
func (h *History) Add(r Reaction) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = r
	h.next = (h.next + 1) % len(h.entries)
	if h.count < len(h.entries) {
		h.count++
	}
	h.total++
}

// Recent returns up to limit reactions, newest first. limit <= 0 means all.
func (h *History) Recent(limit int) []Reaction {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.count
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Reaction, n)
	for i := 0; i < n; i++ {
		idx := (h.next - 1 - i + len(h.entries)) % len(h.entries)
		out[i] = h.entries[idx]
	}
	return out
}

// Counts tallies the retained reactions by kind.
func (h *History) Counts() map[realtime.Kind]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	counts := make(map[realtime.Kind]int, len(realtime.Kinds))
	for _, k := range realtime.Kinds {
		counts[k] = 0
	}
	for i := 0; i < h.count; i++ {
		counts[h.entries[i].Kind]++
	}
	return counts
}

// Total returns the number of reactions ever added.
func (h *History) Total() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}
