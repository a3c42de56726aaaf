package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStorePutGetTouch(t *testing.T) {
	store := NewMemoryStore()
	id := NewID()

	state := State{SessionID: id, TicketContext: "TCK-1", Status: StatusPending}
	if err := store.Put(state); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := store.Get(id)
	if err != nil || !ok {
		t.Fatalf("Get: (%+v, %v, %v)", got, ok, err)
	}
	if got.TicketContext != "TCK-1" {
		t.Fatalf("unexpected ticket context: %q", got.TicketContext)
	}

	before := got.UpdatedAt
	if err := store.Touch(id); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	after, _, _ := store.Get(id)
	if !after.UpdatedAt.After(before) && !after.UpdatedAt.Equal(before) {
		t.Fatalf("expected UpdatedAt to advance or stay equal, got before=%v after=%v", before, after.UpdatedAt)
	}
}

func TestMemoryStoreTouchMissingIsNoop(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Touch("does-not-exist"); err != nil {
		t.Fatalf("expected touching a missing session to be a no-op, got %v", err)
	}
}

func TestFileStorePutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	id := NewID()

	state := State{
		SessionID:     id,
		TicketContext: "TCK-2",
		Cwd:           "/repo",
		Status:        StatusReflected,
		Reflection: &ReflectionResult{
			AcceptedIDs:        []string{"cl_20260729_000"},
			CandidatesProduced: 2,
			CandidatesAccepted: 1,
		},
	}
	if err := store.Put(state); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := store.Get(id)
	if err != nil || !ok {
		t.Fatalf("Get: (%+v, %v, %v)", got, ok, err)
	}
	if got.Status != StatusReflected || got.Reflection == nil || len(got.Reflection.AcceptedIDs) != 1 {
		t.Fatalf("unexpected state: %+v", got)
	}
}

func TestFileStoreGetMissingIsFailOpen(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	got, ok, err := store.Get("nonexistent")
	if err != nil || ok {
		t.Fatalf("expected fail-open (zero, false, nil), got (%+v, %v, %v)", got, ok, err)
	}
}

func TestFileStoreTouchMissingIsNoop(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	if err := store.Touch("nonexistent"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestFileStorePutUsesAtomicRename(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, nil)
	id := "sess-atomic"
	if err := store.Put(State{SessionID: id, Status: StatusPending}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// the temp file should not remain after a successful Put
	if _, ok, _ := store.Get(id); !ok {
		t.Fatal("expected the session file to be readable after Put")
	}
	tmpPath := filepath.Join(dir, id+".json.tmp")
	if _, err := os.Stat(tmpPath); err == nil {
		t.Fatalf("expected temp file %q to be renamed away", tmpPath)
	}
}
