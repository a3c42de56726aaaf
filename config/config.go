// Package config defines the typed configuration shape that discovery,
// decay, and the gate consume. Loading a config.toml or layering
// environment overrides is explicitly out of scope here: this package only
// gives a caller that does load one somewhere else a concrete struct to
// populate and hand in.
package config

import "time"

// TicketingConfig controls ticketing-system discovery (see discovery.DetectTicketing).
type TicketingConfig struct {
	// Order overrides the default probe order [tissue, beads, tasks, session].
	// A nil or empty Order falls back to the default.
	Order []string
	// Overrides vetoes individual systems by name: a system present with
	// value false is never matched, even if its marker exists. A true value
	// only matters for "tasks", which has no filesystem marker and is
	// matched only when set true.
	Overrides map[string]bool
}

// DefaultTicketingConfig returns the default probe order with no overrides.
func DefaultTicketingConfig() TicketingConfig {
	return TicketingConfig{
		Order: []string{"tissue", "beads", "tasks", "session"},
	}
}

// BackendsConfig controls memory-backend discovery (see discovery.DetectBackends).
type BackendsConfig struct {
	// Order overrides the default probe order [total-recall, mcp, markdown].
	Order []string
	// Overrides vetoes individual backends by name: a backend present with
	// value false is never detected. A true value has no effect.
	Overrides map[string]bool
	// PrimaryOverride, when non-empty and naming a detected backend, forces
	// that backend into the primary slot regardless of probe order. This is
	// the in-memory equivalent of the `.grove/config.toml` `[backends].primary`
	// probe described in the design notes: this module never reads that file
	// itself, but a caller who has can populate this field from it.
	PrimaryOverride string
}

// DefaultBackendsConfig returns the default probe order with no overrides.
func DefaultBackendsConfig() BackendsConfig {
	return BackendsConfig{
		Order: []string{"total-recall", "mcp", "markdown"},
	}
}

// DecayConfig parameterises the passive-decay evaluator.
type DecayConfig struct {
	// PassiveDurationDays is the age (in days, since last verification)
	// beyond which an unreferenced, non-immune learning decays.
	PassiveDurationDays int
	// ImmunityHitRate is the hit-rate threshold at or above which a learning
	// is immune to decay regardless of age.
	ImmunityHitRate float64
	// WarningDays sizes the "approaching decay" window surfaced by Insights.
	WarningDays int
	// ThrottleInterval is the minimum spacing between decay sweeps; a sweep
	// within this interval of the last one is a no-op unless forced.
	ThrottleInterval time.Duration
}

// DefaultDecayConfig returns the documented defaults: 90-day passive window,
// 0.8 immunity hit-rate, a 14-day warning window, throttled to once per 24h.
func DefaultDecayConfig() DecayConfig {
	return DecayConfig{
		PassiveDurationDays: 90,
		ImmunityHitRate:     0.8,
		WarningDays:         14,
		ThrottleInterval:    24 * time.Hour,
	}
}

// RetrievalConfig parameterises surfacing/ranking at query time.
type RetrievalConfig struct {
	MaxResults          int
	MinCrossPollination int
}

// DefaultRetrievalConfig returns the documented defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{MaxResults: 10, MinCrossPollination: 3}
}

// GateConfig parameterises the write gate.
type GateConfig struct {
	// DuplicateJaccardThreshold and DuplicateCosineThreshold are the
	// near-duplicate detection thresholds described in the write-gate design.
	DuplicateJaccardThreshold float64
	DuplicateCosineThreshold  float64
}

// DefaultGateConfig returns the documented defaults (Jaccard 0.8, cosine 0.7).
func DefaultGateConfig() GateConfig {
	return GateConfig{DuplicateJaccardThreshold: 0.8, DuplicateCosineThreshold: 0.7}
}

// CircuitBreakerConfig bounds how long a backend is treated as unavailable
// after a fail-open failure before discovery/retrieval probe it again. This
// module defines the shape only; no component currently enforces a cooldown
// (the core is synchronous and stateless across calls per §5), but it gives
// the out-of-scope command layer somewhere to persist breaker state if it
// wants to add one without changing this package's shape.
type CircuitBreakerConfig struct {
	CooldownPeriod   time.Duration
	FailureThreshold int
}

// DefaultCircuitBreakerConfig returns conservative defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{CooldownPeriod: 5 * time.Minute, FailureThreshold: 3}
}

// Config is the root configuration shape consumed by discovery and stats.
type Config struct {
	Ticketing      TicketingConfig
	Backends       BackendsConfig
	Decay          DecayConfig
	Retrieval      RetrievalConfig
	Gate           GateConfig
	CircuitBreaker CircuitBreakerConfig
	// MemoryDir is the Total Recall memory directory root (containing
	// daily/ and registers/). Empty means Total Recall is never detected.
	MemoryDir string
}

// Default returns a Config populated entirely from the per-section defaults.
func Default() Config {
	return Config{
		Ticketing:      DefaultTicketingConfig(),
		Backends:       DefaultBackendsConfig(),
		Decay:          DefaultDecayConfig(),
		Retrieval:      DefaultRetrievalConfig(),
		Gate:           DefaultGateConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}
