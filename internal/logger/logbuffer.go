package logger

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

const defaultBufferSize = 500

// LogEntry is a parsed log line kept for the logs endpoint.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// LogBuffer is an io.Writer that keeps the most recent zerolog JSON entries
// in a circular buffer.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	head    int
	count   int
}

// NewLogBuffer creates a buffer holding at most size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &LogBuffer{entries: make([]LogEntry, size)}
}

// Write implements io.Writer. Lines that are not JSON objects are dropped.
func (b *LogBuffer) Write(p []byte) (int, error) {
	entry, err := parseLogEntry(p)
	if err != nil {
		return len(p), nil //nolint:nilerr // malformed lines are dropped
	}

	b.mu.Lock()
	tail := (b.head + b.count) % len(b.entries)
	b.entries[tail] = entry
	if b.count < len(b.entries) {
		b.count++
	} else {
		b.head = (b.head + 1) % len(b.entries)
	}
	b.mu.Unlock()

	return len(p), nil
}

// Recent returns up to limit entries at or above minLevel, oldest first.
// limit <= 0 means all.
func (b *LogBuffer) Recent(limit int, minLevel zerolog.Level) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]LogEntry, 0, b.count)
	for i := 0; i < b.count; i++ {
		e := b.entries[(b.head+i)%len(b.entries)]
		if lvl, err := zerolog.ParseLevel(e.Level); err == nil && lvl < minLevel {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len returns the number of buffered entries.
func (b *LogBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

func parseLogEntry(data []byte) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return LogEntry{}, err
	}

	entry := LogEntry{}
	if ts, ok := raw[zerolog.TimestampFieldName].(string); ok {
		entry.Timestamp = ts
		delete(raw, zerolog.TimestampFieldName)
	}
	if level, ok := raw[zerolog.LevelFieldName].(string); ok {
		entry.Level = level
		delete(raw, zerolog.LevelFieldName)
	}
	if component, ok := raw["component"].(string); ok {
		entry.Component = component
		delete(raw, "component")
	}
	if msg, ok := raw[zerolog.MessageFieldName].(string); ok {
		entry.Message = msg
		delete(raw, zerolog.MessageFieldName)
	}
	if len(raw) > 0 {
		entry.Fields = raw
	}

	return entry, nil
}
