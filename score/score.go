// Package score holds the tag/file/keyword relevance-matching primitives
// shared by the memory backends (which need to rank search results without
// importing the relevance package) and the relevance package itself. It
// depends on nothing but the standard library and golang.org/x/text, so both
// sides can import it without an import cycle.
package score

import (
	"strings"

	"golang.org/x/text/cases"
)

// Weights used when combining match signals. Combination is max, not sum.
const (
	TagExact       = 1.0
	TagPartial     = 0.5
	FileOverlap    = 0.8
	KeywordSummary = 0.3
)

var fold = cases.Fold()

// Fold case-folds s for Unicode-aware, case-insensitive comparison.
func Fold(s string) string { return fold.String(s) }

// Query is the structured relevance-scoring input: tags, file paths, and
// free-text keywords to match against a Subject, plus an optional exact
// ticket ID match.
type Query struct {
	Tags     []string
	Files    []string
	Keywords []string
	TicketID string
}

// IsEmpty reports whether the query carries no matchable criteria.
func (q Query) IsEmpty() bool {
	return len(q.Tags) == 0 && len(q.Files) == 0 && len(q.Keywords) == 0 && q.TicketID == ""
}

// Subject is the minimal shape of a learning needed to score it against a
// Query, kept independent of the learning package's full record type.
type Subject struct {
	Tags         []string
	ContextFiles []string
	Summary      string
	Detail       string
	TicketID     string
}

// Combined computes the relevance of subject for query, in [0, 1]. An empty
// query always scores 0.
func Combined(query Query, subject Subject) float64 {
	if query.IsEmpty() {
		return 0
	}

	max := 0.0
	if s := Tags(query.Tags, subject.Tags); s > max {
		max = s
	}
	if query.TicketID != "" && query.TicketID == subject.TicketID {
		if TagExact > max {
			max = TagExact
		}
	}
	if s := Files(query.Files, subject.ContextFiles); s > max {
		max = s
	}
	if s := Keywords(query.Keywords, subject.Summary, subject.Detail); s > max {
		max = s
	}
	if max > 1.0 {
		max = 1.0
	}
	return max
}

// Tags scores a tag-set match: case-insensitive exact equality wins
// TagExact, a substring match either direction wins TagPartial.
func Tags(queryTags, subjectTags []string) float64 {
	if len(queryTags) == 0 {
		return 0
	}
	max := 0.0
	for _, qt := range queryTags {
		qtFold := Fold(qt)
		for _, st := range subjectTags {
			stFold := Fold(st)
			if qtFold == stFold {
				if TagExact > max {
					max = TagExact
				}
			} else if strings.Contains(stFold, qtFold) || strings.Contains(qtFold, stFold) {
				if TagPartial > max {
					max = TagPartial
				}
			}
		}
	}
	return max
}

// Files scores a file-path overlap: exact equality, same final path
// component, or one normalised path a suffix of the other, all win
// FileOverlap.
func Files(queryFiles, contextFiles []string) float64 {
	if len(queryFiles) == 0 || len(contextFiles) == 0 {
		return 0
	}
	for _, qf := range queryFiles {
		for _, cf := range contextFiles {
			if FilesOverlap(qf, cf) {
				return FileOverlap
			}
		}
	}
	return 0
}

// FilesOverlap reports whether two file paths refer to overlapping content:
// exact equality, same final path component, or one normalised path a suffix
// of the other.
func FilesOverlap(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	nameA := lastPathComponent(a)
	nameB := lastPathComponent(b)
	if nameA == nameB && nameA != "" {
		return true
	}

	normA := strings.TrimPrefix(a, "/")
	normB := strings.TrimPrefix(b, "/")
	return strings.HasSuffix(normA, normB) || strings.HasSuffix(normB, normA)
}

func lastPathComponent(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// Keywords scores a case-insensitive substring match of any keyword against
// summary or detail, winning KeywordSummary.
func Keywords(keywords []string, summary, detail string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	haystack := Fold(summary) + "\n" + Fold(detail)
	for _, kw := range keywords {
		if strings.Contains(haystack, Fold(kw)) {
			return KeywordSummary
		}
	}
	return 0
}
