// Package stats implements the append-only event log, the rebuildable
// materialised cache, the passive-decay evaluator, and human-readable
// insights derived from cache state.
package stats

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the wire version stamped on every event line.
const SchemaVersion = "1.0"

// EventKind names one of the tagged-union event variants.
type EventKind string

const (
	KindSurfaced   EventKind = "Surfaced"
	KindReferenced EventKind = "Referenced"
	KindDismissed  EventKind = "Dismissed"
	KindCorrected  EventKind = "Corrected"
	KindReflection EventKind = "Reflection"
	KindSkip       EventKind = "Skip"
	KindArchived   EventKind = "Archived"
	KindRestored   EventKind = "Restored"
)

// SurfacedData is the payload of a Surfaced event: a learning was returned
// to the agent by a query.
type SurfacedData struct {
	LearningID string `json:"learning_id"`
	SessionID  string `json:"session_id,omitempty"`
}

// ReferencedData is the payload of a Referenced event: a surfaced learning
// was actually used by the agent in ticket TicketID.
type ReferencedData struct {
	LearningID string `json:"learning_id"`
	TicketID   string `json:"ticket_id,omitempty"`
}

// DismissedData is the payload of a Dismissed event: a surfaced learning was
// explicitly rejected as not relevant.
type DismissedData struct {
	LearningID string `json:"learning_id"`
}

// CorrectedData is the payload of a Corrected event: a learning's content
// was flagged as inaccurate and edited.
type CorrectedData struct {
	LearningID string `json:"learning_id"`
}

// ReflectionData is the payload of a Reflection event: one completed
// write-gate pass over a batch of candidates. TicketID, when non-empty,
// becomes each accepted learning's origin ticket on first sight.
type ReflectionData struct {
	SessionID          string   `json:"session_id"`
	TicketID           string   `json:"ticket_id,omitempty"`
	CandidatesProduced int      `json:"candidates_produced"`
	CandidatesAccepted int      `json:"candidates_accepted"`
	AcceptedIDs        []string `json:"accepted_ids,omitempty"`
	Backend            string   `json:"backend,omitempty"`
}

// SkipData is the payload of a Skip event: a session ended without running
// the write gate at all.
type SkipData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
}

// ArchivedData is the payload of an Archived event.
type ArchivedData struct {
	LearningID string `json:"learning_id"`
	Reason     string `json:"reason,omitempty"`
}

// RestoredData is the payload of a Restored event.
type RestoredData struct {
	LearningID string `json:"learning_id"`
}

// Event is one immutable, append-only stats-log entry. Data holds exactly
// one of the *Data payload types above, selected by Kind.
type Event struct {
	Timestamp time.Time
	Version   string
	Kind      EventKind
	Data      interface{}
}

func newEvent(kind EventKind, data interface{}) Event {
	return Event{Timestamp: time.Now().UTC(), Version: SchemaVersion, Kind: kind, Data: data}
}

func NewSurfaced(learningID, sessionID string) Event {
	return newEvent(KindSurfaced, SurfacedData{LearningID: learningID, SessionID: sessionID})
}

func NewReferenced(learningID, ticketID string) Event {
	return newEvent(KindReferenced, ReferencedData{LearningID: learningID, TicketID: ticketID})
}

func NewDismissed(learningID string) Event {
	return newEvent(KindDismissed, DismissedData{LearningID: learningID})
}

func NewCorrected(learningID string) Event {
	return newEvent(KindCorrected, CorrectedData{LearningID: learningID})
}

func NewReflection(sessionID, ticketID string, produced, accepted int, acceptedIDs []string, backend string) Event {
	return newEvent(KindReflection, ReflectionData{
		SessionID:          sessionID,
		TicketID:           ticketID,
		CandidatesProduced: produced,
		CandidatesAccepted: accepted,
		AcceptedIDs:        acceptedIDs,
		Backend:            backend,
	})
}

func NewSkip(sessionID, reason string) Event {
	return newEvent(KindSkip, SkipData{SessionID: sessionID, Reason: reason})
}

func NewArchived(learningID, reason string) Event {
	return newEvent(KindArchived, ArchivedData{LearningID: learningID, Reason: reason})
}

func NewRestored(learningID string) Event {
	return newEvent(KindRestored, RestoredData{LearningID: learningID})
}

type envelope struct {
	Timestamp time.Time                  `json:"ts"`
	Version   string                     `json:"v"`
	Data      map[string]json.RawMessage `json:"data"`
}

// MarshalJSON renders the stable wire format:
// {"ts":"<RFC3339>","v":"1.0","data":{"<Kind>":{<fields>}}}.
func (e Event) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{
		Timestamp: e.Timestamp,
		Version:   e.Version,
		Data:      map[string]json.RawMessage{string(e.Kind): payload},
	})
}

// UnmarshalJSON parses the tagged-union wire format back into the matching
// *Data payload type.
func (e *Event) UnmarshalJSON(b []byte) error {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	e.Timestamp = env.Timestamp
	e.Version = env.Version

	for kind, raw := range env.Data {
		e.Kind = EventKind(kind)
		var err error
		e.Data, err = unmarshalPayload(e.Kind, raw)
		if err != nil {
			return err
		}
		break // exactly one key is ever present
	}
	return nil
}

func unmarshalPayload(kind EventKind, raw json.RawMessage) (interface{}, error) {
	switch kind {
	case KindSurfaced:
		var d SurfacedData
		return d, json.Unmarshal(raw, &d)
	case KindReferenced:
		var d ReferencedData
		return d, json.Unmarshal(raw, &d)
	case KindDismissed:
		var d DismissedData
		return d, json.Unmarshal(raw, &d)
	case KindCorrected:
		var d CorrectedData
		return d, json.Unmarshal(raw, &d)
	case KindReflection:
		var d ReflectionData
		return d, json.Unmarshal(raw, &d)
	case KindSkip:
		var d SkipData
		return d, json.Unmarshal(raw, &d)
	case KindArchived:
		var d ArchivedData
		return d, json.Unmarshal(raw, &d)
	case KindRestored:
		var d RestoredData
		return d, json.Unmarshal(raw, &d)
	default:
		return nil, fmt.Errorf("stats: unknown event kind %q", kind)
	}
}
