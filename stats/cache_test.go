package stats

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRebuildFoldsSurfacedAndReferencedIntoHitRate(t *testing.T) {
	events := []Event{
		NewSurfaced("cl_20260729_000", "sess-1"),
		NewSurfaced("cl_20260729_000", "sess-1"),
		NewReferenced("cl_20260729_000", "TCK-1"),
	}
	cache := Rebuild(events, nil)

	stats, ok := cache.Learnings["cl_20260729_000"]
	if !ok {
		t.Fatal("expected learning stats to exist")
	}
	if stats.Surfaced != 2 || stats.Referenced != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.HitRate != 0.5 {
		t.Fatalf("expected hit rate 0.5, got %v", stats.HitRate)
	}
}

func TestRebuildIsDeterministicForTheSameEvents(t *testing.T) {
	events := []Event{
		NewSurfaced("cl_20260729_000", "sess-1"),
		NewReferenced("cl_20260729_000", "TCK-1"),
		NewReflection("sess-1", "TCK-1", 2, 1, []string{"cl_20260729_000"}, "markdown"),
	}
	a := Rebuild(events, nil)
	b := Rebuild(events, nil)

	if a.Learnings["cl_20260729_000"].HitRate != b.Learnings["cl_20260729_000"].HitRate {
		t.Fatal("expected identical hit rates across rebuilds")
	}
	if a.WriteGate.PassRate != b.WriteGate.PassRate {
		t.Fatal("expected identical write-gate pass rate across rebuilds")
	}
	if a.Aggregates != b.Aggregates {
		t.Fatalf("expected identical aggregates: %+v vs %+v", a.Aggregates, b.Aggregates)
	}
}

func TestRebuildDetectsCrossPollination(t *testing.T) {
	events := []Event{
		NewReflection("sess-1", "TCK-1", 1, 1, []string{"cl_20260729_000"}, "markdown"),
		NewReferenced("cl_20260729_000", "TCK-2"),
	}
	cache := Rebuild(events, nil)
	if len(cache.CrossPollination) != 1 {
		t.Fatalf("expected one cross-pollination edge, got %d", len(cache.CrossPollination))
	}
	edge := cache.CrossPollination[0]
	if edge.OriginTicket != "TCK-1" || edge.ReferencingTicket != "TCK-2" {
		t.Fatalf("unexpected edge: %+v", edge)
	}
}

func TestRebuildPreservesLastDecayCheckFromPrior(t *testing.T) {
	prior := &Cache{LastDecayCheck: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
	cache := Rebuild(nil, prior)
	if !cache.LastDecayCheck.Equal(prior.LastDecayCheck) {
		t.Fatalf("expected LastDecayCheck preserved, got %v", cache.LastDecayCheck)
	}
}

func TestCacheStoreLoadOrRebuildRebuildsWhenStale(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "stats.log")
	cachePath := filepath.Join(dir, "stats-cache.json")

	log := NewEventLog(logPath, nil)
	store := NewCacheStore(cachePath, nil)

	if err := log.Append(NewSurfaced("cl_20260729_000", "sess-1")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	cache, err := store.LoadOrRebuild(log)
	if err != nil {
		t.Fatalf("LoadOrRebuild: %v", err)
	}
	if cache.LogEntriesProcessed != 1 {
		t.Fatalf("expected 1 entry processed, got %d", cache.LogEntriesProcessed)
	}

	if err := log.Append(NewReferenced("cl_20260729_000", "TCK-1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	cache2, err := store.LoadOrRebuild(log)
	if err != nil {
		t.Fatalf("LoadOrRebuild: %v", err)
	}
	if cache2.LogEntriesProcessed != 2 {
		t.Fatalf("expected rebuild to pick up new entry, got %d", cache2.LogEntriesProcessed)
	}
	if cache2.Learnings["cl_20260729_000"].Referenced != 1 {
		t.Fatalf("expected referenced count 1, got %+v", cache2.Learnings["cl_20260729_000"])
	}
}

func TestCacheStoreLoadOrRebuildReusesFreshCache(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "stats.log")
	cachePath := filepath.Join(dir, "stats-cache.json")

	log := NewEventLog(logPath, nil)
	store := NewCacheStore(cachePath, nil)

	if err := log.Append(NewSurfaced("cl_20260729_000", "sess-1")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	first, err := store.LoadOrRebuild(log)
	if err != nil {
		t.Fatalf("LoadOrRebuild: %v", err)
	}

	second, err := store.LoadOrRebuild(log)
	if err != nil {
		t.Fatalf("LoadOrRebuild: %v", err)
	}
	if second.GeneratedAt != first.GeneratedAt {
		t.Fatal("expected cached load to skip rebuild and reuse the persisted GeneratedAt")
	}
}
