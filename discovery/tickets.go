// Package discovery probes the filesystem and configuration to pick a
// ticketing system and a primary memory backend, and matches the shell
// commands the hook layer uses to detect a ticket-close action.
package discovery

import (
	"os"
	"path/filepath"

	"github.com/madhatter5501/learngate/config"
)

// TicketingSystem names a detected ticket tracker.
type TicketingSystem string

const (
	TicketingTissue  TicketingSystem = "tissue"
	TicketingBeads   TicketingSystem = "beads"
	TicketingTasks   TicketingSystem = "tasks"
	TicketingSession TicketingSystem = "session"
)

var defaultTicketingOrder = []string{"tissue", "beads", "tasks", "session"}

// DetectTicketing probes cwd (and cfg's overrides) in the configured order
// and returns the first unvetoed match. "session" is always available as
// the terminal fallback, so this never fails to return a system: an empty
// or all-disabled order still falls through to session.
func DetectTicketing(cwd string, cfg config.TicketingConfig) TicketingSystem {
	order := cfg.Order
	if len(order) == 0 {
		order = defaultTicketingOrder
	}

	for _, name := range order {
		if enabled, explicit := cfg.Overrides[name]; explicit && !enabled {
			continue
		}
		if probeTicketing(cwd, TicketingSystem(name), cfg) {
			return TicketingSystem(name)
		}
	}
	return TicketingSession
}

func probeTicketing(cwd string, system TicketingSystem, cfg config.TicketingConfig) bool {
	switch system {
	case TicketingTissue:
		return dirExists(filepath.Join(cwd, ".tissue"))
	case TicketingBeads:
		return dirExists(filepath.Join(cwd, ".beads"))
	case TicketingTasks:
		return cfg.Overrides["tasks"]
	case TicketingSession:
		return true
	default:
		return false
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
