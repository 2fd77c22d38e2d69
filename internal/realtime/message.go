package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMalformed = errors.New("malformed message")

// Envelope types on the wire.
const (
	TypeSendEmotion     = "send-emotion"
	TypeEmotionDetected = "emotion-detected"
)

// Message is the JSON envelope exchanged with the relay.
type Message struct {
	Type      string `json:"type"`
	Payload   string `json:"payload"`
	Timestamp string `json:"timestamp"`
}

// NewMessage builds an envelope carrying kind.
func NewMessage(msgType string, kind Kind, now time.Time) Message {
	return Message{
		Type:      msgType,
		Payload:   string(kind),
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// Encode serializes m.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses an envelope. The type field is required.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return m, nil
}
