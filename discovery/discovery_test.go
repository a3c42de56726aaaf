package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/madhatter5501/learngate/config"
)

func TestDetectTicketingPrefersTissueOverBeads(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".tissue"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, ".beads"), 0o755); err != nil {
		t.Fatal(err)
	}
	got := DetectTicketing(dir, config.DefaultTicketingConfig())
	if got != TicketingTissue {
		t.Fatalf("expected tissue, got %v", got)
	}
}

func TestDetectTicketingFallsBackToSession(t *testing.T) {
	dir := t.TempDir()
	got := DetectTicketing(dir, config.DefaultTicketingConfig())
	if got != TicketingSession {
		t.Fatalf("expected session fallback, got %v", got)
	}
}

func TestDetectTicketingOverrideVetoesMatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".tissue"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultTicketingConfig()
	cfg.Overrides = map[string]bool{"tissue": false}
	got := DetectTicketing(dir, cfg)
	if got != TicketingSession {
		t.Fatalf("expected veto to fall through to session, got %v", got)
	}
}

func TestDetectBackendsFallsBackToMarkdownWhenNothingMatches(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	detected := DetectBackends(dir, cfg, nil)
	if len(detected) != 1 || detected[0].Name != BackendMarkdown || !detected[0].IsPrimary {
		t.Fatalf("expected sole primary markdown fallback, got %+v", detected)
	}
}

func TestDetectBackendsDetectsTotalRecallAsPrimary(t *testing.T) {
	dir := t.TempDir()
	memDir := filepath.Join(dir, "memory")
	if err := os.MkdirAll(memDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "rules"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "rules", "total-recall.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.MemoryDir = memDir
	detected := DetectBackends(dir, cfg, nil)

	var primary *DetectedBackend
	for i := range detected {
		if detected[i].IsPrimary {
			primary = &detected[i]
		}
	}
	if primary == nil || primary.Name != BackendTotalRecall {
		t.Fatalf("expected total-recall primary, got %+v", detected)
	}
}

func TestDetectBackendsPrimaryOverrideForcesSlot(t *testing.T) {
	dir := t.TempDir()
	memDir := filepath.Join(dir, "memory")
	if err := os.MkdirAll(memDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "rules"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "rules", "total-recall.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.MemoryDir = memDir
	cfg.Backends.PrimaryOverride = "markdown"
	detected := DetectBackends(dir, cfg, nil)

	var primary *DetectedBackend
	for i := range detected {
		if detected[i].IsPrimary {
			primary = &detected[i]
		}
	}
	if primary == nil || primary.Name != BackendMarkdown {
		t.Fatalf("expected markdown forced primary, got %+v", detected)
	}
}

func TestMatchCloseCommandRecognisesForms(t *testing.T) {
	cases := []struct {
		command string
		want    TicketingSystem
		ok      bool
	}{
		{"tissue status TCK-1 closed", TicketingTissue, true},
		{"beads close bd-42", TicketingBeads, true},
		{"beads complete bd-42", TicketingBeads, true},
		{"tissue status TCK-1 open", "", false},
		{"git status", "", false},
	}
	for _, c := range cases {
		got, ok := MatchCloseCommand("Bash", c.command)
		if got != c.want || ok != c.ok {
			t.Errorf("MatchCloseCommand(%q) = (%v, %v), want (%v, %v)", c.command, got, ok, c.want, c.ok)
		}
	}
}

func TestMatchCloseCommandVetoesShellOperators(t *testing.T) {
	dangerous := []string{
		"tissue status TCK-1 closed && rm -rf /",
		"tissue status TCK-1 closed; rm -rf /",
		"tissue status TCK-1 closed | cat",
		"beads close bd-42 &",
		"beads close bd-42 || true",
	}
	for _, cmd := range dangerous {
		if _, ok := MatchCloseCommand("Bash", cmd); ok {
			t.Errorf("expected MatchCloseCommand to veto %q", cmd)
		}
	}
}

func TestMatchCloseCommandRequiresBashTool(t *testing.T) {
	if _, ok := MatchCloseCommand("Shell", "tissue status TCK-1 closed"); ok {
		t.Fatal("expected non-Bash tool to never match")
	}
}
