package discovery

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/madhatter5501/learngate/config"
	"github.com/madhatter5501/learngate/memory"
)

// BackendName identifies a detectable memory backend.
type BackendName string

const (
	BackendTotalRecall BackendName = "total-recall"
	BackendMCP         BackendName = "mcp"
	BackendMarkdown    BackendName = "markdown"
)

var defaultBackendOrder = []string{"total-recall", "mcp", "markdown"}

// DetectedBackend is one probe result: a name and whether it was marked
// primary.
type DetectedBackend struct {
	Name      BackendName
	IsPrimary bool
}

// DetectBackends probes cwd (and cfg) in the configured order and returns
// every backend that matched, with exactly one marked primary: the first
// non-vetoed match, or a config-forced override, or Markdown injected as a
// last resort if nothing else matched.
func DetectBackends(cwd string, cfg config.Config, logger *slog.Logger) []DetectedBackend {
	if logger == nil {
		logger = slog.Default()
	}

	order := cfg.Backends.Order
	if len(order) == 0 {
		order = defaultBackendOrder
	}

	var detected []DetectedBackend
	for _, name := range order {
		if enabled, explicit := cfg.Backends.Overrides[name]; explicit && !enabled {
			continue
		}
		if probeBackend(cwd, BackendName(name), cfg) {
			detected = append(detected, DetectedBackend{Name: BackendName(name)})
		}
	}

	if len(detected) == 0 {
		logger.Warn("no memory backend detected, falling back to markdown", "cwd", cwd)
		return []DetectedBackend{{Name: BackendMarkdown, IsPrimary: true}}
	}

	primaryIdx := 0
	if override := BackendName(cfg.Backends.PrimaryOverride); override != "" {
		for i, d := range detected {
			if d.Name == override {
				primaryIdx = i
				break
			}
		}
	}
	detected[primaryIdx].IsPrimary = true
	return detected
}

func probeBackend(cwd string, name BackendName, cfg config.Config) bool {
	switch name {
	case BackendTotalRecall:
		return probeTotalRecall(cwd, cfg.MemoryDir)
	case BackendMCP:
		return false // reserved; never detected
	case BackendMarkdown:
		return true
	default:
		return false
	}
}

// probeTotalRecall requires a memory/ directory plus a total-recall rule
// marker at either rules/total-recall.md or .claude/rules/total-recall.md,
// both resolved relative to root (the probed cwd), as siblings of
// memoryDir rather than nested inside it.
func probeTotalRecall(root, memoryDir string) bool {
	if memoryDir == "" || !dirExists(memoryDir) {
		return false
	}
	return fileExists(filepath.Join(root, "rules", "total-recall.md")) ||
		fileExists(filepath.Join(root, ".claude", "rules", "total-recall.md"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// BuildPrimary composes the concrete memory.Backend for the primary
// detection result: Total Recall, when primary, is wrapped by Fallback with
// Markdown as secondary; Markdown, when primary, stands alone.
func BuildPrimary(cwd, memoryDir string, primary BackendName, logger *slog.Logger) memory.Backend {
	md := memory.NewMarkdownBackend(filepath.Join(cwd, ".grove", "learnings.md"), logger)
	switch primary {
	case BackendTotalRecall:
		tr := memory.NewTotalRecallBackend(memoryDir, logger)
		return memory.NewFallbackBackend(tr, md)
	default:
		return md
	}
}
