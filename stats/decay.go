package stats

import (
	"log/slog"
	"time"

	"github.com/madhatter5501/learngate/config"
	"github.com/madhatter5501/learngate/groveerr"
	"github.com/madhatter5501/learngate/learning"
	"github.com/madhatter5501/learngate/memory"
)

// DecayOutcome is the per-learning verdict of one decay evaluation.
type DecayOutcome int

const (
	Active DecayOutcome = iota
	Immune
	Decayed
	AlreadyArchived
)

func (o DecayOutcome) String() string {
	switch o {
	case Active:
		return "active"
	case Immune:
		return "immune"
	case Decayed:
		return "decayed"
	case AlreadyArchived:
		return "already_archived"
	default:
		return "unknown"
	}
}

// Evaluate implements the §4.10 decision: already-archived learnings are
// reported as such; a hit rate at or above the immunity threshold makes a
// learning immune regardless of age; otherwise a learning decays once its
// last verification (the most recent of last-referenced, last-surfaced, and
// creation time) is strictly older than the configured passive window.
func Evaluate(stats LearningStats, createdAt time.Time, cfg config.DecayConfig, now time.Time) DecayOutcome {
	if stats.Archived {
		return AlreadyArchived
	}
	if stats.HitRate >= cfg.ImmunityHitRate {
		return Immune
	}

	lastVerified := latestTime(stats.LastReferenced, stats.LastSurfaced, createdAt)
	threshold := time.Duration(cfg.PassiveDurationDays) * 24 * time.Hour
	if now.Sub(lastVerified) > threshold {
		return Decayed
	}
	return Active
}

func latestTime(times ...time.Time) time.Time {
	var latest time.Time
	for _, t := range times {
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}

// SweepResult reports the outcome of one Sweep call.
type SweepResult struct {
	// Throttled is true when the sweep was a no-op because it ran inside
	// the configured throttle interval and wasn't forced.
	Throttled  bool
	ArchivedIDs []string
}

// Sweep evaluates every learning in learnings against cache and, for each
// one resolving to Decayed, archives it on backend, flips its cache entry's
// Archived flag, and appends an Archived{reason:"passive_decay"} event to
// log. The sweep itself is throttled to once per cfg.ThrottleInterval unless
// force is set; cache.LastDecayCheck is stamped to now whenever the sweep
// actually runs (not on a throttled no-op).
func Sweep(cache *Cache, backend memory.Backend, learnings []learning.Learning, cfg config.DecayConfig, log *EventLog, now time.Time, force bool, logger *slog.Logger) (SweepResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if !force && !cache.LastDecayCheck.IsZero() && now.Sub(cache.LastDecayCheck) <= cfg.ThrottleInterval {
		return SweepResult{Throttled: true}, nil
	}

	var result SweepResult
	for _, l := range learnings {
		stats, ok := cache.Learnings[l.ID]
		if !ok {
			continue
		}
		if Evaluate(*stats, l.Timestamp, cfg, now) != Decayed {
			continue
		}

		if err := backend.Archive(l.ID); err != nil {
			groveerr.FailOpenLog(logger, "stats.decay.sweep", err)
			continue
		}
		stats.Archived = true
		result.ArchivedIDs = append(result.ArchivedIDs, l.ID)

		if log != nil {
			if err := log.Append(NewArchived(l.ID, "passive_decay")); err != nil {
				groveerr.FailOpenLog(logger, "stats.decay.sweep", err)
			}
		}
	}

	cache.LastDecayCheck = now
	return result, nil
}

// Warnings returns the IDs of active, non-immune learnings whose age since
// last verification falls in the window
// (passive_duration_days - warning_days, passive_duration_days].
func Warnings(cache *Cache, learnings []learning.Learning, cfg config.DecayConfig, now time.Time) []string {
	threshold := time.Duration(cfg.PassiveDurationDays) * 24 * time.Hour
	window := time.Duration(cfg.WarningDays) * 24 * time.Hour

	var ids []string
	for _, l := range learnings {
		stats, ok := cache.Learnings[l.ID]
		if !ok || stats.Archived {
			continue
		}
		if stats.HitRate >= cfg.ImmunityHitRate {
			continue
		}

		lastVerified := latestTime(stats.LastReferenced, stats.LastSurfaced, l.Timestamp)
		age := now.Sub(lastVerified)
		if age > threshold-window && age <= threshold {
			ids = append(ids, l.ID)
		}
	}
	return ids
}
