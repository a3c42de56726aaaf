package stats

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEventLogAppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.log")
	log := NewEventLog(path, nil)

	if err := log.Append(NewSurfaced("cl_20260729_000", "sess-1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := log.Append(NewReferenced("cl_20260729_000", "TCK-1")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	count, err := log.LineCount()
	if err != nil {
		t.Fatalf("LineCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 lines, got %d", count)
	}

	events, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != KindSurfaced || events[1].Kind != KindReferenced {
		t.Fatalf("unexpected kinds: %v, %v", events[0].Kind, events[1].Kind)
	}
}

func TestEventLogMissingFileIsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")
	log := NewEventLog(path, nil)

	count, err := log.LineCount()
	if err != nil || count != 0 {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, err)
	}
	events, err := log.ReadAll()
	if err != nil || events != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", events, err)
	}
}

func TestEventLogToleratesMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.log")
	log := NewEventLog(path, nil)

	if err := log.Append(NewSkip("sess-1", "nothing to reflect")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{not valid json\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()
	if err := log.Append(NewSkip("sess-2", "also nothing")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := log.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected malformed line to be skipped, got %d events", len(events))
	}
}
