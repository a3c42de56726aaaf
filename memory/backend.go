// Package memory defines the Backend interface implemented by each concrete
// learning store (Markdown, Total Recall, Fallback) and the shared request
// and result types they all speak.
package memory

import (
	"time"

	"github.com/madhatter5501/learngate/learning"
)

// WriteResult is returned by Write. Success=false is not an error: it is the
// backend's way of reporting a soft, fail-open failure (the caller decides
// whether to retry, fall back, or surface it).
type WriteResult struct {
	Success    bool
	LearningID string
	Location   string
	Message    string // empty means no message
}

// SearchQuery is the structured relevance-scoring input.
type SearchQuery struct {
	Tags     []string
	Files    []string
	Keywords []string
	TicketID string // empty means absent
}

// IsEmpty reports whether the query carries no matchable criteria.
func (q SearchQuery) IsEmpty() bool {
	return len(q.Tags) == 0 && len(q.Files) == 0 && len(q.Keywords) == 0 && q.TicketID == ""
}

// SearchFilters narrows a search independently of relevance.
type SearchFilters struct {
	Status       learning.Status
	AllStatuses  bool // when true, Status is ignored and every status matches
	Scope        learning.Scope
	HasScope     bool
	CreatedAfter time.Time // zero value means no lower bound
	MaxResults   int       // 0 means unlimited
}

// DefaultFilters returns the Active-only, unlimited default filter set.
func DefaultFilters() SearchFilters {
	return SearchFilters{Status: learning.StatusActive}
}

// AllFilters returns a filter set that matches every status.
func AllFilters() SearchFilters {
	return SearchFilters{AllStatuses: true}
}

// Matches reports whether l passes the filter set (relevance is scored
// separately).
func (f SearchFilters) Matches(l learning.Learning) bool {
	if !f.AllStatuses && l.Status != f.Status {
		return false
	}
	if f.HasScope && l.Scope != f.Scope {
		return false
	}
	if !f.CreatedAfter.IsZero() && !l.Timestamp.After(f.CreatedAfter) {
		return false
	}
	return true
}

// SearchResult pairs a matched Learning with its relevance score.
type SearchResult struct {
	Learning  learning.Learning
	Relevance float64
}

// Backend is the polymorphic capability surface every concrete memory store
// implements: Markdown, Total Recall, and the Fallback composition of the two.
type Backend interface {
	Write(l learning.Learning) (WriteResult, error)
	Search(query SearchQuery, filters SearchFilters) ([]SearchResult, error)
	Archive(id string) error
	Restore(id string) error
	ListAll() ([]learning.Learning, error)
	Ping() bool
	Name() string
	NextID() (string, error)
	NextIDs(count int) ([]string, error)
}

// ListAll is a reusable default implementation of Backend.ListAll, built on
// top of Search with an empty query and an all-statuses filter, as required
// by the Backend Contract.
func ListAll(b Backend) ([]learning.Learning, error) {
	results, err := b.Search(SearchQuery{}, AllFilters())
	if err != nil {
		return nil, err
	}
	out := make([]learning.Learning, 0, len(results))
	for _, r := range results {
		out = append(out, r.Learning)
	}
	return out, nil
}

// sortResultsByRelevanceDesc sorts results by descending relevance, with a
// stable tie-break that preserves input (insertion) order.
func sortResultsByRelevanceDesc(results []SearchResult) {
	// insertion sort: stable and cheap for the small result sets these
	// backends deal with, and trivially preserves tie order.
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j].Relevance > results[j-1].Relevance {
			results[j], results[j-1] = results[j-1], results[j]
			j--
		}
	}
}

func truncate(results []SearchResult, max int) []SearchResult {
	if max <= 0 || len(results) <= max {
		return results
	}
	return results[:max]
}
