package stats

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
)

// InsightKind names a derived, human-readable cache observation.
type InsightKind string

const (
	InsightDecayWarning         InsightKind = "DecayWarning"
	InsightHighCrossPollination InsightKind = "HighCrossPollination"
)

// Insight is one pure, side-effect-free observation derived from a cache
// snapshot, ready to be rendered by the (out-of-scope) command layer.
type Insight struct {
	Kind     InsightKind
	Priority int
	Message  string
}

// ComputeInsights applies the Stage-1 rules to a cache snapshot:
// DecayWarning when any learnings fall in the decay warning window, and
// HighCrossPollination when the cross-pollination edge count reaches
// minCrossPollination. Results are sorted ascending by priority.
func ComputeInsights(cache Cache, decayWarningIDs []string, minCrossPollination int) []Insight {
	var insights []Insight

	if n := len(decayWarningIDs); n > 0 {
		insights = append(insights, Insight{
			Kind:     InsightDecayWarning,
			Priority: 2,
			Message: fmt.Sprintf(
				"%s %s approaching the passive-decay archive threshold",
				humanize.Comma(int64(n)), pluralize(n, "learning", "learnings"),
			),
		})
	}

	if n := len(cache.CrossPollination); n >= minCrossPollination {
		insights = append(insights, Insight{
			Kind:     InsightHighCrossPollination,
			Priority: 3,
			Message: fmt.Sprintf(
				"%s cross-pollination %s: learnings referenced outside their origin ticket",
				humanize.Comma(int64(n)), pluralize(n, "edge", "edges"),
			),
		})
	}

	sort.SliceStable(insights, func(i, j int) bool { return insights[i].Priority < insights[j].Priority })
	return insights
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
