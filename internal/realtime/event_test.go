package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"happy", Happy, false},
		{"Sad", Sad, false},
		{" angry ", Angry, false},
		{"surprised", Surprised, false},
		{"neutral", Neutral, false},
		{"", "", true},
		{"bored", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := Encode(NewMessage(TypeEmotionDetected, Happy, now))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"emotion-detected","payload":"happy","timestamp":"2024-01-02T03:04:05Z"}`, string(data))

	msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "happy", msg.Payload)
}

func TestDecode_Malformed(t *testing.T) {
	for _, in := range []string{"", "{", `{"payload":"happy"}`} {
		_, err := Decode([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}
