package relevance

import (
	"context"
	"sync"

	"github.com/madhatter5501/learngate/learning"
	"github.com/madhatter5501/learngate/memory"
)

// ScoredID pairs a learning ID with an externally computed relevance score,
// the shape a registered SearchIndex returns.
type ScoredID struct {
	ID        string
	Relevance float64
}

// SearchIndex is the extension seam for a pluggable full-text search index:
// an alternative to the built-in tag/file/keyword scorer. No concrete index
// ships with this module; this interface only defines where one would plug
// in.
type SearchIndex interface {
	Search(ctx context.Context, query memory.SearchQuery, limit int) ([]ScoredID, error)
}

var (
	registryMu sync.RWMutex
	registered SearchIndex
)

// RegisterIndex installs idx as the preferred search backend. Passing nil
// clears any previously registered index, reverting to the built-in scorer.
func RegisterIndex(idx SearchIndex) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registered = idx
}

// RegisteredIndex returns the currently registered SearchIndex, if any.
func RegisteredIndex() (SearchIndex, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registered, registered != nil
}

// RankWithIndex prefers a registered SearchIndex for ranking learnings,
// falling back to the built-in Rank when no index is registered or the
// index call fails. The index's IDs are resolved against learnings; IDs
// that are not among learnings are skipped.
func RankWithIndex(ctx context.Context, query memory.SearchQuery, learnings []learning.Learning, limit int) []memory.SearchResult {
	idx, ok := RegisteredIndex()
	if !ok {
		return Rank(query, learnings, limit)
	}

	scored, err := idx.Search(ctx, query, limit)
	if err != nil {
		return Rank(query, learnings, limit)
	}

	byID := make(map[string]learning.Learning, len(learnings))
	for _, l := range learnings {
		byID[l.ID] = l
	}

	out := make([]memory.SearchResult, 0, len(scored))
	for _, s := range scored {
		if l, ok := byID[s.ID]; ok {
			out = append(out, memory.SearchResult{Learning: l, Relevance: s.Relevance})
		}
	}
	return out
}
