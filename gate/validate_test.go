package gate

import (
	"testing"

	"github.com/madhatter5501/learngate/config"
	"github.com/madhatter5501/learngate/learning"
)

var testGateConfig = config.DefaultGateConfig()

func validCandidate() Candidate {
	return Candidate{
		Category:    "pattern",
		Summary:     "Use X for Y",
		Detail:      "Detail text that is long enough to pass the thirty character minimum easily.",
		Scope:       "project",
		Confidence:  "high",
		CriteriaMet: []string{"behavior_changing"},
		Tags:        []string{"x", "y"},
	}
}

func TestValidateHappyPath(t *testing.T) {
	result := Validate([]Candidate{validCandidate()}, "sess-1", nil, testGateConfig)

	if len(result.Rejected) != 0 {
		t.Fatalf("expected no rejections, got %+v", result.Rejected)
	}
	if len(result.Accepted) != 1 {
		t.Fatalf("expected one accepted learning, got %d", len(result.Accepted))
	}
	if result.CandidatesAccepted != 1 || result.CandidatesProduced != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Accepted[0].ID != learning.PendingLearningID {
		t.Fatalf("expected placeholder ID, got %q", result.Accepted[0].ID)
	}
}

func TestValidateRejectsBadSchema(t *testing.T) {
	c := validCandidate()
	c.Summary = "short"

	result := Validate([]Candidate{c}, "sess-1", nil, testGateConfig)
	if len(result.Accepted) != 0 {
		t.Fatalf("expected no accepted learnings")
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Stage != StageSchema {
		t.Fatalf("expected schema-stage rejection, got %+v", result.Rejected)
	}
}

func TestValidateRejectsLowConfidenceWithoutExplicitRequest(t *testing.T) {
	c := validCandidate()
	c.Confidence = "low"

	result := Validate([]Candidate{c}, "sess-1", nil, testGateConfig)
	if len(result.Rejected) != 1 || result.Rejected[0].Stage != StageWriteGate {
		t.Fatalf("expected write_gate-stage rejection, got %+v", result.Rejected)
	}
}

func TestValidateAcceptsLowConfidenceWithExplicitRequest(t *testing.T) {
	c := validCandidate()
	c.Confidence = "low"
	c.CriteriaMet = []string{"explicit_request"}

	result := Validate([]Candidate{c}, "sess-1", nil, testGateConfig)
	if len(result.Accepted) != 1 {
		t.Fatalf("expected acceptance, got rejections %+v", result.Rejected)
	}
}

func TestValidateContinuesBatchAfterMalformedCandidate(t *testing.T) {
	bad := validCandidate()
	bad.Detail = "too short"
	good := validCandidate()
	good.Summary = "A second, distinct summary about Z"

	result := Validate([]Candidate{bad, good}, "sess-1", nil, testGateConfig)
	if len(result.Accepted) != 1 {
		t.Fatalf("expected the valid candidate to still be accepted, got %+v", result.Accepted)
	}
	if len(result.Rejected) != 1 {
		t.Fatalf("expected exactly one rejection, got %+v", result.Rejected)
	}
}

func TestValidateRejectsDuplicateBySummary(t *testing.T) {
	existing := []learning.Learning{{
		ID:       "cl_20260101_000",
		Category: learning.CategoryPattern,
		Scope:    learning.ScopeProject,
		Summary:  "Avoid N+1 queries in UserDashboard",
		Status:   learning.StatusActive,
	}}

	c := validCandidate()
	c.Summary = "avoid n+1 queries in userdashboard"

	result := Validate([]Candidate{c}, "sess-1", existing, testGateConfig)
	if len(result.Accepted) != 0 {
		t.Fatalf("expected duplicate rejection, got acceptance")
	}
	if len(result.Rejected) != 1 || result.Rejected[0].Stage != StageDuplicate {
		t.Fatalf("expected duplicate-stage rejection, got %+v", result.Rejected)
	}
}

func TestValidateDuplicateRejectionSymmetry(t *testing.T) {
	a := validCandidate()
	a.Summary = "Avoid N+1 queries in UserDashboard"
	a.Tags = []string{"perf", "db"}

	b := validCandidate()
	b.Summary = "avoid n+1 queries in UserDashboard here"
	b.Tags = []string{"perf", "db"}

	// Submit A first: B is rejected as a duplicate of A.
	resultAFirst := Validate([]Candidate{a}, "sess-1", nil, testGateConfig)
	existingWithA := []learning.Learning{resultAFirst.Accepted[0]}
	existingWithA[0].ID = "cl_20260101_000"

	resultBSecond := Validate([]Candidate{b}, "sess-1", existingWithA, testGateConfig)
	if len(resultBSecond.Accepted) != 0 {
		t.Fatalf("expected B to be rejected as duplicate of A")
	}

	// Submit B first: A is rejected as a duplicate of B, never the reverse.
	resultBFirst := Validate([]Candidate{b}, "sess-1", nil, testGateConfig)
	existingWithB := []learning.Learning{resultBFirst.Accepted[0]}
	existingWithB[0].ID = "cl_20260101_000"

	resultASecond := Validate([]Candidate{a}, "sess-1", existingWithB, testGateConfig)
	if len(resultASecond.Accepted) != 0 {
		t.Fatalf("expected A to be rejected as duplicate of B")
	}
}
