package gate

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/madhatter5501/learngate/config"
	"github.com/madhatter5501/learngate/learning"
)

// Validate runs the three-stage write gate over candidates, short-circuiting
// each candidate at its first failing stage without aborting the batch.
// existing is the set of learnings already active in the target backend,
// used for near-duplicate detection. cfg supplies the near-duplicate
// Jaccard/cosine thresholds (§4.1); the caller typically passes
// config.DefaultGateConfig() unless an operator has overridden it.
func Validate(candidates []Candidate, sessionID string, existing []learning.Learning, cfg config.GateConfig) Result {
	result := Result{CandidatesProduced: len(candidates)}

	for _, c := range candidates {
		l, rejected, ok := validateOne(c, sessionID)
		if !ok {
			result.Rejected = append(result.Rejected, rejected)
			continue
		}
		if isDuplicate(c, l.Category, l.Scope, existing, cfg) {
			result.Rejected = append(result.Rejected, Rejected{
				Summary:         c.Summary,
				RejectionReason: "duplicate of an existing active learning",
				Stage:           StageDuplicate,
			})
			continue
		}

		result.Accepted = append(result.Accepted, l)
		result.CandidatesAccepted++
	}

	return result
}

func validateOne(c Candidate, sessionID string) (learning.Learning, Rejected, bool) {
	category, ok := learning.ParseCategory(c.Category)
	if !ok {
		return learning.Learning{}, reject(c, StageSchema, "unrecognised category"), false
	}
	scope, ok := learning.ParseScope(c.Scope)
	if !ok {
		return learning.Learning{}, reject(c, StageSchema, "unrecognised scope"), false
	}
	confidence, ok := learning.ParseConfidence(c.Confidence)
	if !ok {
		return learning.Learning{}, reject(c, StageSchema, "unrecognised confidence"), false
	}

	summary := strings.TrimSpace(c.Summary)
	if n := utf8.RuneCountInString(summary); n < 10 || n > 200 {
		return learning.Learning{}, reject(c, StageSchema, "summary must be 10-200 characters"), false
	}
	if utf8.RuneCountInString(c.Detail) < 30 {
		return learning.Learning{}, reject(c, StageSchema, "detail must be at least 30 characters"), false
	}

	if len(c.CriteriaMet) == 0 {
		return learning.Learning{}, reject(c, StageSchema, "criteria_met must be non-empty"), false
	}
	criteria := make([]learning.Criterion, 0, len(c.CriteriaMet))
	for _, cs := range c.CriteriaMet {
		crit, ok := learning.ParseCriterion(cs)
		if !ok {
			return learning.Learning{}, reject(c, StageSchema, "unrecognised criterion: "+cs), false
		}
		criteria = append(criteria, crit)
	}

	// Write-gate policy: Low confidence requires an explicit request.
	if confidence == learning.ConfidenceLow {
		hasExplicit := false
		for _, crit := range criteria {
			if crit == learning.CriterionExplicitRequest {
				hasExplicit = true
				break
			}
		}
		if !hasExplicit {
			return learning.Learning{}, reject(c, StageWriteGate, "low confidence requires an explicit request"), false
		}
	}

	if assessPlausibility(c, category) == PlausibilityLow {
		return learning.Learning{}, reject(c, StageWriteGate, "low plausibility for category "+category.String()), false
	}

	l := learning.Learning{
		ID:            learning.PendingLearningID,
		SchemaVersion: learning.SchemaVersion,
		Category:      category,
		Summary:       summary,
		Detail:        c.Detail,
		Scope:         scope,
		Confidence:    confidence,
		CriteriaMet:   criteria,
		Tags:          append([]string(nil), c.Tags...),
		SessionID:     sessionID,
		TicketID:      c.TicketID,
		Timestamp:     time.Now().UTC(),
		ContextFiles:  append([]string(nil), c.ContextFiles...),
		Status:        learning.StatusActive,
	}
	return l, Rejected{}, true
}

func reject(c Candidate, stage Stage, reason string) Rejected {
	return Rejected{Summary: c.Summary, RejectionReason: reason, Stage: stage}
}
