// Package gate implements the Write Gate: the three-stage validation
// pipeline (schema, policy, duplicate) that turns agent-submitted
// candidates into durable Learnings or typed rejections.
package gate

import "github.com/madhatter5501/learngate/learning"

// Stage names the pipeline stage a candidate was rejected at.
type Stage string

const (
	StageSchema    Stage = "schema"
	StageWriteGate Stage = "write_gate"
	StageDuplicate Stage = "duplicate"
)

// Candidate is the agent-submitted, loosely-typed shape of a Learning: same
// fields minus ID, Timestamp, Status, SchemaVersion, with enum fields typed
// as free strings to be coerced during schema validation.
type Candidate struct {
	Category     string
	Summary      string
	Detail       string
	Scope        string
	Confidence   string
	CriteriaMet  []string
	Tags         []string
	SessionID    string
	TicketID     string
	ContextFiles []string
}

// Rejected preserves a candidate that failed validation, along with why.
type Rejected struct {
	Summary         string
	RejectionReason string
	Stage           Stage
}

// Result is the outcome of validating a batch of candidates.
type Result struct {
	Accepted           []learning.Learning
	Rejected           []Rejected
	CandidatesProduced int
	CandidatesAccepted int
}
