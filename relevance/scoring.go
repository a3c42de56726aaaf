// Package relevance scores and ranks learnings against a search query, and
// defines the registration seam for an optional external search index.
//
// The actual tag/file/keyword matching lives in the score package, shared
// with the memory backends so the two can't drift apart on weights or
// case-folding; this package is a thin memory/learning-typed façade over it
// plus the ranking and extension-registry behaviour.
package relevance

import (
	"sort"

	"github.com/madhatter5501/learngate/learning"
	"github.com/madhatter5501/learngate/memory"
	"github.com/madhatter5501/learngate/score"
)

// Weights used when combining match signals. Combination is max, not sum.
// Re-exported from the score package for callers already depending on these
// names.
const (
	TagExact       = score.TagExact
	TagPartial     = score.TagPartial
	FileOverlap    = score.FileOverlap
	KeywordSummary = score.KeywordSummary
)

// Score computes the relevance of l for query, in [0, 1]. An empty query
// always scores 0.
func Score(query memory.SearchQuery, l learning.Learning) float64 {
	return score.Combined(toScoreQuery(query), score.Subject{
		Tags:         l.Tags,
		ContextFiles: l.ContextFiles,
		Summary:      l.Summary,
		Detail:       l.Detail,
		TicketID:     l.TicketID,
	})
}

func toScoreQuery(q memory.SearchQuery) score.Query {
	return score.Query{Tags: q.Tags, Files: q.Files, Keywords: q.Keywords, TicketID: q.TicketID}
}

// Rank scores every learning against query, keeps only non-zero scores, and
// returns them sorted by descending score with a stable tie-break on input
// order, truncated to limit (0 means unlimited).
func Rank(query memory.SearchQuery, learnings []learning.Learning, limit int) []memory.SearchResult {
	results := make([]memory.SearchResult, 0, len(learnings))
	for _, l := range learnings {
		s := Score(query, l)
		if s > 0 {
			results = append(results, memory.SearchResult{Learning: l, Relevance: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
