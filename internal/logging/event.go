package logging

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const maxErrorLen = 256

type EventKind string

const (
	EventLookup      EventKind = "lookup"
	EventNormalize   EventKind = "normalize"
	EventIndexFile   EventKind = "index_file"
	EventIndexError  EventKind = "index_error"
	EventRateLimited EventKind = "rate_limited"
)

// Event is written as a single JSON object per line.
type Event struct {
	Timestamp  time.Time `json:"ts"`
	RequestID  string    `json:"request_id,omitempty"`
	Kind       EventKind `json:"kind"`
	Library    string    `json:"library,omitempty"`
	RawPath    string    `json:"raw_path,omitempty"`
	Path       string    `json:"path,omitempty"`
	Status     int       `json:"status,omitempty"`
	CacheHit   bool      `json:"cache_hit,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

type EventLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewEventLogger(w io.Writer) *EventLogger {
	return &EventLogger{w: w}
}

func OpenEventLog(path string) (*EventLogger, func() error, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return NewEventLogger(file), file.Close, nil
}

// Write is safe for concurrent use. A nil logger drops the event.
func (l *EventLogger) Write(event Event) error {
	if l == nil {
		return nil
	}
	if len(event.Error) > maxErrorLen {
		event.Error = event.Error[:maxErrorLen]
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}
