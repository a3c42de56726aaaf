// Command learngate wires together discovery, the backend stack, and
// logging for the Compound Learning Gate. Argument parsing, configuration
// loading, and the agent hook integration live outside this module; this
// entry point only demonstrates how a caller assembles the pieces.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/madhatter5501/learngate/config"
	"github.com/madhatter5501/learngate/discovery"
)

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func main() {
	logger := newLogger()
	slog.SetDefault(logger)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "learngate: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	ticketing := discovery.DetectTicketing(cwd, cfg.Ticketing)
	backends := discovery.DetectBackends(cwd, cfg, logger)

	var primary discovery.BackendName
	for _, b := range backends {
		if b.IsPrimary {
			primary = b.Name
		}
	}

	backend := discovery.BuildPrimary(cwd, cfg.MemoryDir, primary, logger)
	logger.Info("compound learning gate ready",
		"cwd", filepath.Clean(cwd),
		"ticketing", ticketing,
		"primary_backend", backend.Name(),
	)
}
