// Package realtime implements the reaction channel shared by playback sessions:
// one connection per process, reference counted, used to publish reactions and
// to receive the reaction events that drive the player overlay.
package realtime

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is a reaction kind.
type Kind string

const (
	Happy     Kind = "happy"
	Sad       Kind = "sad"
	Angry     Kind = "angry"
	Surprised Kind = "surprised"
	Neutral   Kind = "neutral"
)

// Kinds lists every valid reaction kind in display order.
var Kinds = []Kind{Happy, Sad, Angry, Surprised, Neutral}

var ErrUnknownKind = errors.New("unknown reaction kind")

// ParseKind validates s as a reaction kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Kinds {
		if k == valid {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Event is an inbound reaction. It is never persisted.
type Event struct {
	Kind       Kind      `json:"kind"`
	ReceivedAt time.Time `json:"receivedAt"`
}
