package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of pipeline event
type EventType string

const (
	EventGenerate EventType = "generate"
	EventUpload   EventType = "upload"
	EventShort    EventType = "short"
	EventArchive  EventType = "archive"
	EventRestore  EventType = "restore"
	EventCleanup  EventType = "cleanup"
	EventSkip     EventType = "skip"
	EventError    EventType = "error"
)

// Event represents a single event in the publishing pipeline
type Event struct {
	Timestamp time.Time `json:"ts"`
	RunID     string    `json:"run_id"`
	Event     EventType `json:"event"`
	Session   string    `json:"session,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	VideoID   string    `json:"video_id,omitempty"`
	Path      string    `json:"path,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Duration  int64     `json:"duration_ms,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// EventLogger writes JSONL events for one pipeline run
type EventLogger struct {
	mu    sync.Mutex
	file  *os.File
	path  string
	runID string
}

// NewEventLogger creates a logger writing to artifactsDir/events/<ts>.jsonl
func NewEventLogger(artifactsDir string) (*EventLogger, error) {
	runID := uuid.NewString()

	dir := filepath.Join(artifactsDir, "events")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create event log dir: %w", err)
	}

	path := filepath.Join(dir, time.Now().Format("20060102-150405")+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{file: file, path: path, runID: runID}, nil
}

// NullLogger returns a logger that discards all events
func NullLogger() *EventLogger {
	return &EventLogger{}
}

// Path returns the event log file path, or "" for a null logger
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the unique id of this pipeline run
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Close flushes and closes the event log
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Log writes one event
func (l *EventLogger) Log(e Event) {
	if l == nil || l.file == nil {
		return
	}

	e.Timestamp = time.Now()
	e.RunID = l.runID

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	l.file.Write(append(data, '\n'))
}

// LogUpload records an upload attempt
func (l *EventLogger) LogUpload(session, kind, videoID string, duration time.Duration, err error) {
	e := Event{
		Event:    EventUpload,
		Session:  session,
		Kind:     kind,
		VideoID:  videoID,
		Duration: duration.Milliseconds(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	l.Log(e)
}

// LogShort records a short-creation attempt
func (l *EventLogger) LogShort(session, path, videoID string, err error) {
	e := Event{
		Event:   EventShort,
		Session: session,
		Path:    path,
		VideoID: videoID,
	}
	if err != nil {
		e.Error = err.Error()
	}
	l.Log(e)
}

// LogArchive records an archive or restore move
func (l *EventLogger) LogArchive(event EventType, session, path string, err error) {
	e := Event{
		Event:   event,
		Session: session,
		Path:    path,
	}
	if err != nil {
		e.Error = err.Error()
	}
	l.Log(e)
}

// LogSkip records a skipped item with a reason
func (l *EventLogger) LogSkip(session, reason string) {
	l.Log(Event{Event: EventSkip, Session: session, Reason: reason})
}
