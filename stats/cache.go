package stats

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/madhatter5501/learngate/groveerr"
)

// LearningStats holds the per-learning counters and derived metrics folded
// from the event log.
type LearningStats struct {
	Surfaced           int       `json:"surfaced"`
	Referenced         int       `json:"referenced"`
	Dismissed          int       `json:"dismissed"`
	Corrected          int       `json:"corrected"`
	LastSurfaced       time.Time `json:"last_surfaced,omitempty"`
	LastReferenced     time.Time `json:"last_referenced,omitempty"`
	HitRate            float64   `json:"hit_rate"`
	OriginTicket       string    `json:"origin_ticket,omitempty"`
	ReferencingTickets []string  `json:"referencing_tickets,omitempty"`
	Archived           bool      `json:"archived"`
}

// ReflectionStats tallies how many write-gate passes completed vs. were
// skipped entirely.
type ReflectionStats struct {
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"`
}

// WriteGateStats aggregates write-gate outcomes across every Reflection
// event.
type WriteGateStats struct {
	TotalEvaluated int            `json:"total_evaluated"`
	TotalAccepted  int            `json:"total_accepted"`
	TotalRejected  int            `json:"total_rejected"`
	PassRate       float64        `json:"pass_rate"`
	BackendCounts  map[string]int `json:"backend_counts,omitempty"`
}

// CrossPollinationEdge records one instance of a learning being referenced
// in a ticket other than the one that originated it.
type CrossPollinationEdge struct {
	LearningID        string `json:"learning_id"`
	OriginTicket      string `json:"origin_ticket"`
	ReferencingTicket string `json:"referencing_ticket"`
}

// Aggregates are cross-learning rollups computed after folding.
type Aggregates struct {
	AverageHitRate float64 `json:"average_hit_rate"`
	ArchivedCount  int     `json:"archived_count"`
	ActiveCount    int     `json:"active_count"`
}

// Cache is the materialised projection of the event log: a pure function of
// the event sequence (ignoring GeneratedAt). Stale iff LogEntriesProcessed
// no longer matches the log's current line count.
type Cache struct {
	GeneratedAt         time.Time                 `json:"generated_at"`
	LogEntriesProcessed int                       `json:"log_entries_processed"`
	LastDecayCheck       time.Time                 `json:"last_decay_check,omitempty"`
	Learnings           map[string]*LearningStats `json:"learnings"`
	Reflections         ReflectionStats           `json:"reflections"`
	WriteGate           WriteGateStats            `json:"write_gate"`
	CrossPollination    []CrossPollinationEdge    `json:"cross_pollination,omitempty"`
	Aggregates          Aggregates                `json:"aggregates"`
}

func newCache() Cache {
	return Cache{Learnings: make(map[string]*LearningStats)}
}

func (c *Cache) statsFor(id string) *LearningStats {
	s, ok := c.Learnings[id]
	if !ok {
		s = &LearningStats{}
		c.Learnings[id] = s
	}
	return s
}

// Rebuild folds events, in order, into a fresh Cache. It is a pure function
// of events: the only non-determinism anywhere in the pipeline is the
// GeneratedAt timestamp, which the caller stamps afterward. LastDecayCheck
// is carried over from prior (if given) since decay throttling state isn't
// itself derivable from the event log.
func Rebuild(events []Event, prior *Cache) Cache {
	cache := newCache()
	if prior != nil {
		cache.LastDecayCheck = prior.LastDecayCheck
	}

	for _, e := range events {
		foldEvent(&cache, e)
	}
	finalizeAggregates(&cache)
	return cache
}

func foldEvent(cache *Cache, e Event) {
	switch e.Kind {
	case KindSurfaced:
		d := e.Data.(SurfacedData)
		s := cache.statsFor(d.LearningID)
		s.Surfaced++
		s.LastSurfaced = e.Timestamp

	case KindReferenced:
		d := e.Data.(ReferencedData)
		s := cache.statsFor(d.LearningID)
		s.Referenced++
		s.LastReferenced = e.Timestamp
		if d.TicketID != "" && !containsString(s.ReferencingTickets, d.TicketID) {
			s.ReferencingTickets = append(s.ReferencingTickets, d.TicketID)
		}
		if s.OriginTicket != "" && d.TicketID != "" && d.TicketID != s.OriginTicket {
			cache.CrossPollination = append(cache.CrossPollination, CrossPollinationEdge{
				LearningID:        d.LearningID,
				OriginTicket:      s.OriginTicket,
				ReferencingTicket: d.TicketID,
			})
		}

	case KindDismissed:
		d := e.Data.(DismissedData)
		cache.statsFor(d.LearningID).Dismissed++

	case KindCorrected:
		d := e.Data.(CorrectedData)
		cache.statsFor(d.LearningID).Corrected++

	case KindReflection:
		d := e.Data.(ReflectionData)
		cache.Reflections.Completed++
		cache.WriteGate.TotalEvaluated += d.CandidatesProduced
		cache.WriteGate.TotalAccepted += d.CandidatesAccepted
		cache.WriteGate.TotalRejected += d.CandidatesProduced - d.CandidatesAccepted
		if d.Backend != "" {
			if cache.WriteGate.BackendCounts == nil {
				cache.WriteGate.BackendCounts = make(map[string]int)
			}
			cache.WriteGate.BackendCounts[d.Backend]++
		}
		for _, id := range d.AcceptedIDs {
			s := cache.statsFor(id)
			if s.OriginTicket == "" {
				s.OriginTicket = d.TicketID
			}
		}

	case KindSkip:
		cache.Reflections.Skipped++

	case KindArchived:
		d := e.Data.(ArchivedData)
		cache.statsFor(d.LearningID).Archived = true

	case KindRestored:
		d := e.Data.(RestoredData)
		cache.statsFor(d.LearningID).Archived = false
	}
}

func finalizeAggregates(cache *Cache) {
	var hitRateSum float64
	var hitRateCount int

	for _, s := range cache.Learnings {
		if s.Surfaced > 0 {
			s.HitRate = float64(s.Referenced) / float64(s.Surfaced)
			hitRateSum += s.HitRate
			hitRateCount++
		} else {
			s.HitRate = 0
		}
		if s.Archived {
			cache.Aggregates.ArchivedCount++
		} else {
			cache.Aggregates.ActiveCount++
		}
	}

	if hitRateCount > 0 {
		cache.Aggregates.AverageHitRate = hitRateSum / float64(hitRateCount)
	}

	if cache.WriteGate.TotalEvaluated > 0 {
		cache.WriteGate.PassRate = float64(cache.WriteGate.TotalAccepted) / float64(cache.WriteGate.TotalEvaluated)
	}
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// CacheStore persists the materialised Cache to <home>/.grove/stats-cache.json
// and knows how to rebuild it from an EventLog when stale.
type CacheStore struct {
	Path   string
	Logger *slog.Logger
}

// NewCacheStore builds a store at path.
func NewCacheStore(path string, logger *slog.Logger) *CacheStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheStore{Path: path, Logger: logger}
}

// Load reads the persisted cache, returning (nil, nil) if it doesn't exist.
func (s *CacheStore) Load() (*Cache, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, groveerr.Storage("stats.cache.load", err)
	}
	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, groveerr.Serde("stats.cache.load", err)
	}
	return &c, nil
}

// Save persists c as pretty JSON, creating the parent directory on demand.
func (s *CacheStore) Save(c Cache) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return groveerr.Storage("stats.cache.save", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return groveerr.Serde("stats.cache.save", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return groveerr.Storage("stats.cache.save", err)
	}
	return nil
}

// LoadOrRebuild implements the §4.9 contract: load the persisted cache; if
// absent or stale (LogEntriesProcessed doesn't match the log's current line
// count), rebuild from the full event log and persist the result. Any
// load/save failure is fail-open: logged, and rebuild proceeds regardless.
func (s *CacheStore) LoadOrRebuild(log *EventLog) (Cache, error) {
	lineCount, err := log.LineCount()
	if err != nil {
		return Cache{}, err
	}

	existing, err := s.Load()
	if err != nil {
		groveerr.FailOpenLog(s.Logger, "stats.cache.load_or_rebuild", err)
		existing = nil
	}
	if existing != nil && existing.LogEntriesProcessed == lineCount {
		return *existing, nil
	}

	events, err := log.ReadAll()
	if err != nil {
		return Cache{}, err
	}

	rebuildID := uuid.NewString()
	s.Logger.Info("rebuilding stats cache", "rebuild_id", rebuildID, "log_entries", lineCount)

	rebuilt := Rebuild(events, existing)
	rebuilt.LogEntriesProcessed = lineCount
	rebuilt.GeneratedAt = time.Now().UTC()

	if err := s.Save(rebuilt); err != nil {
		groveerr.FailOpenLog(s.Logger, "stats.cache.load_or_rebuild", err)
	}
	return rebuilt, nil
}
