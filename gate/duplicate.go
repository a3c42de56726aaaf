package gate

import (
	"math"
	"regexp"
	"strings"

	"github.com/madhatter5501/learngate/config"
	"github.com/madhatter5501/learngate/learning"
)

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
var whitespace = regexp.MustCompile(`\s+`)

// normalizeSummary lowercases, strips punctuation, and collapses whitespace
// so that near-identical summaries compare equal.
func normalizeSummary(s string) string {
	s = strings.ToLower(s)
	s = punctuation.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// jaccard computes the Jaccard similarity of two tag sets.
func jaccard(a, b []string) (similarity float64, overlapNonEmpty bool) {
	if len(a) == 0 && len(b) == 0 {
		return 0, false
	}
	setA := toSet(a)
	setB := toSet(b)

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0, false
	}
	return float64(intersection) / float64(union), intersection > 0
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, i := range items {
		m[strings.ToLower(i)] = true
	}
	return m
}

// cosineTokens computes the cosine similarity between two texts treated as
// term-frequency bags of whitespace-delimited tokens.
func cosineTokens(a, b string) float64 {
	freqA := tokenFreq(a)
	freqB := tokenFreq(b)
	if len(freqA) == 0 || len(freqB) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for term, fa := range freqA {
		if fb, ok := freqB[term]; ok {
			dot += float64(fa) * float64(fb)
		}
		normA += float64(fa) * float64(fa)
	}
	for _, fb := range freqB {
		normB += float64(fb) * float64(fb)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenFreq(s string) map[string]int {
	s = normalizeSummary(s)
	freq := make(map[string]int)
	for _, tok := range strings.Fields(s) {
		freq[tok]++
	}
	return freq
}

// isDuplicate reports whether candidate c duplicates an existing active
// learning with the same (category, scope): either identical normalised
// summaries, or a tag-Jaccard similarity at or above cfg.DuplicateJaccardThreshold
// with non-empty tag overlap and a summary cosine similarity at or above
// cfg.DuplicateCosineThreshold.
func isDuplicate(c Candidate, category learning.Category, scope learning.Scope, existing []learning.Learning, cfg config.GateConfig) bool {
	normSummary := normalizeSummary(c.Summary)

	for _, e := range existing {
		if e.Status != learning.StatusActive {
			continue
		}
		if e.Category != category || e.Scope != scope {
			continue
		}

		if normalizeSummary(e.Summary) == normSummary {
			return true
		}

		sim, overlap := jaccard(c.Tags, e.Tags)
		if overlap && sim >= cfg.DuplicateJaccardThreshold && cosineTokens(c.Summary, e.Summary) >= cfg.DuplicateCosineThreshold {
			return true
		}
	}
	return false
}
