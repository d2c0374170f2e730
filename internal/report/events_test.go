package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"
)

func TestEventLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewEventLogger(dir)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	if logger.RunID() == "" {
		t.Error("expected a run id")
	}

	logger.LogUpload("session-a", "long", "vid-1", 2*time.Second, nil)
	logger.LogShort("session-a", "/x/short.mp4", "", errors.New("render failed"))
	logger.LogSkip("session-b", "already uploaded")

	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}

	f, err := os.Open(logger.Path())
	if err != nil {
		t.Fatalf("failed to open event log: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid JSONL line: %v", err)
		}
		events = append(events, e)
	}

	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	if events[0].Event != EventUpload || events[0].VideoID != "vid-1" || events[0].Duration != 2000 {
		t.Errorf("unexpected upload event %+v", events[0])
	}
	if events[1].Event != EventShort || events[1].Error != "render failed" {
		t.Errorf("unexpected short event %+v", events[1])
	}
	if events[2].Event != EventSkip || events[2].Reason != "already uploaded" {
		t.Errorf("unexpected skip event %+v", events[2])
	}

	for i, e := range events {
		if e.RunID != logger.RunID() {
			t.Errorf("event %d missing run id", i)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("event %d missing timestamp", i)
		}
	}
}

func TestNullLoggerIsSafe(t *testing.T) {
	logger := NullLogger()
	logger.Log(Event{Event: EventError})
	logger.LogSkip("x", "y")
	if err := logger.Close(); err != nil {
		t.Errorf("null logger close failed: %v", err)
	}

	var nilLogger *EventLogger
	nilLogger.Log(Event{Event: EventError})
	if nilLogger.Path() != "" || nilLogger.RunID() != "" {
		t.Error("nil logger accessors must return empty strings")
	}
}
