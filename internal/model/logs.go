package model

import "time"

// LogEntry is one line from either log store, normalized. Identity for
// deduplication is (timestamp, message, level).
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Source    LogSource `json:"source"`
}

// LogKey is the deduplication identity of a log entry.
type LogKey struct {
	Timestamp int64
	Message   string
	Level     LogLevel
}

// Key returns the entry's deduplication identity.
func (e LogEntry) Key() LogKey {
	return LogKey{
		Timestamp: e.Timestamp.UnixMilli(),
		Message:   e.Message,
		Level:     e.Level,
	}
}
