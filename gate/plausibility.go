package gate

import (
	"strings"

	"github.com/madhatter5501/learngate/learning"
)

// Plausibility is the category-specific heuristic verdict produced by the
// write-gate policy stage.
type Plausibility int

const (
	PlausibilityHigh Plausibility = iota
	PlausibilityMedium
	PlausibilityLow
)

var pitfallKeywords = []string{
	"avoid", "don't", "do not", "never", "issue", "bug", "mistake", "pitfall",
	"wrong", "breaks", "fails", "gotcha", "trap",
}

var conventionKeywords = []string{
	"should", "must", "always", "convention", "prefer", "use ", "standard", "style",
}

var uncertainKeywords = []string{
	"maybe", "might", "not sure", "perhaps", "unclear", "possibly", "i think",
}

// assessPlausibility implements the category-specific plausibility heuristics:
// a Pitfall should read like it names something to avoid; a Convention should
// read prescriptively. Other categories are assumed plausible by default.
func assessPlausibility(c Candidate, category learning.Category) Plausibility {
	text := strings.ToLower(c.Summary + " " + c.Detail)

	switch category {
	case learning.CategoryPitfall:
		if containsAny(text, pitfallKeywords) {
			return PlausibilityHigh
		}
		if containsAny(text, uncertainKeywords) {
			return PlausibilityLow
		}
		return PlausibilityMedium

	case learning.CategoryConvention:
		if containsAny(text, conventionKeywords) {
			return PlausibilityHigh
		}
		if containsAny(text, uncertainKeywords) {
			return PlausibilityLow
		}
		return PlausibilityMedium

	default:
		if containsAny(text, uncertainKeywords) {
			return PlausibilityLow
		}
		return PlausibilityHigh
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
