package memory

import (
	"github.com/madhatter5501/learngate/learning"
)

const fallbackLocationSuffix = " (fallback)"

// FallbackBackend composes a primary and a secondary backend. Write tries
// the primary first and only falls through to the secondary when the
// primary reports success=false (a soft failure, not a Go error); Search
// always queries both and merges. It exclusively owns both handles: nothing
// outside this type reaches into primary/fallback directly.
type FallbackBackend struct {
	Primary  Backend
	Fallback Backend
}

// NewFallbackBackend composes primary and fallback.
func NewFallbackBackend(primary, fallback Backend) *FallbackBackend {
	return &FallbackBackend{Primary: primary, Fallback: fallback}
}

// Name implements Backend: the primary's name, since there is no dynamic
// string for the composed pair.
func (b *FallbackBackend) Name() string { return b.Primary.Name() }

// Ping implements Backend: true if either backend is reachable.
func (b *FallbackBackend) Ping() bool { return b.Primary.Ping() || b.Fallback.Ping() }

// Write implements Backend: try the primary; on success=false, try the
// fallback and annotate its location with " (fallback)". If both fail, the
// fallback's raw failed result is returned as-is.
func (b *FallbackBackend) Write(l learning.Learning) (WriteResult, error) {
	result, err := b.Primary.Write(l)
	if err != nil {
		return result, err
	}
	if result.Success {
		return result, nil
	}

	fallbackResult, err := b.Fallback.Write(l)
	if err != nil {
		return fallbackResult, err
	}
	if fallbackResult.Success {
		fallbackResult.Location += fallbackLocationSuffix
	}
	return fallbackResult, nil
}

// Search implements Backend: query both unconditionally, concatenate
// primary-first, dedupe by learning ID preferring the primary's copy,
// re-sort by relevance descending, and truncate to the filter's max.
func (b *FallbackBackend) Search(query SearchQuery, filters SearchFilters) ([]SearchResult, error) {
	primaryResults, err := b.Primary.Search(query, filters)
	if err != nil {
		return nil, err
	}
	fallbackResults, err := b.Fallback.Search(query, filters)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(primaryResults))
	merged := make([]SearchResult, 0, len(primaryResults)+len(fallbackResults))
	for _, r := range primaryResults {
		if !seen[r.Learning.ID] {
			seen[r.Learning.ID] = true
			merged = append(merged, r)
		}
	}
	for _, r := range fallbackResults {
		if !seen[r.Learning.ID] {
			seen[r.Learning.ID] = true
			merged = append(merged, r)
		}
	}

	sortResultsByRelevanceDesc(merged)
	return truncate(merged, filters.MaxResults), nil
}

// ListAll implements Backend via the shared default.
func (b *FallbackBackend) ListAll() ([]learning.Learning, error) { return ListAll(b) }

// Archive implements Backend: tries the primary first, falling through to
// the secondary if the primary doesn't have the record.
func (b *FallbackBackend) Archive(id string) error {
	if err := b.Primary.Archive(id); err == nil {
		return nil
	}
	return b.Fallback.Archive(id)
}

// Restore implements Backend; see Archive.
func (b *FallbackBackend) Restore(id string) error {
	if err := b.Primary.Restore(id); err == nil {
		return nil
	}
	return b.Fallback.Restore(id)
}

// NextID implements Backend, deferring to the primary's allocator.
func (b *FallbackBackend) NextID() (string, error) { return b.Primary.NextID() }

// NextIDs implements Backend, deferring to the primary's allocator.
func (b *FallbackBackend) NextIDs(count int) ([]string, error) { return b.Primary.NextIDs(count) }
