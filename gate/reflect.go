package gate

import (
	"github.com/madhatter5501/learngate/config"
	"github.com/madhatter5501/learngate/learning"
	"github.com/madhatter5501/learngate/memory"
)

// Reflect runs Validate and then, for every accepted candidate, allocates a
// real ID from backend (a single NextIDs scan covers the whole batch, per
// §4.2) and persists it via backend.Write. The returned Result's Accepted
// learnings carry their real, backend-assigned IDs; Rejected is unchanged
// from Validate. A NextIDs or Write failure aborts the remaining writes in
// the batch and returns what succeeded so far alongside the error — callers
// that want best-effort semantics should inspect Result.Accepted even on a
// non-nil error.
func Reflect(candidates []Candidate, sessionID string, existing []learning.Learning, backend memory.Backend, cfg config.GateConfig) (Result, error) {
	result := Validate(candidates, sessionID, existing, cfg)
	if len(result.Accepted) == 0 {
		return result, nil
	}

	ids, err := backend.NextIDs(len(result.Accepted))
	if err != nil {
		return result, err
	}

	written := make([]learning.Learning, 0, len(result.Accepted))
	for i, l := range result.Accepted {
		l.ID = ids[i]
		if _, err := backend.Write(l); err != nil {
			result.Accepted = written
			return result, err
		}
		written = append(written, l)
	}
	result.Accepted = written
	return result, nil
}
