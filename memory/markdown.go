package memory

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/madhatter5501/learngate/groveerr"
	"github.com/madhatter5501/learngate/learning"
	"github.com/madhatter5501/learngate/score"
)

// MarkdownBackend is the append-only Markdown store: a project file for
// Project/Team scope and a personal file for Personal scope. Ephemeral
// learnings are acknowledged but never written.
//
// Status mutation (Archive/Restore) loads the whole file, mutates the
// matching record in memory, and rewrites the file by truncation. This is
// not crash-atomic: a crash mid-rewrite can leave a truncated file. That
// tradeoff is inherited deliberately rather than papered over with a
// temp-file-then-rename scheme, since whether to harden it is an open
// design question, not a settled defect.
type MarkdownBackend struct {
	ProjectPath  string
	PersonalPath string
	Logger       *slog.Logger
}

// NewMarkdownBackend builds a backend rooted at projectPath, with the
// personal file defaulting to "<home>/.grove/personal-learnings.md".
func NewMarkdownBackend(projectPath string, logger *slog.Logger) *MarkdownBackend {
	return NewMarkdownBackendWithPaths(projectPath, defaultPersonalPath(), logger)
}

// NewMarkdownBackendWithPaths builds a backend with explicit file paths,
// primarily for tests.
func NewMarkdownBackendWithPaths(projectPath, personalPath string, logger *slog.Logger) *MarkdownBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkdownBackend{ProjectPath: projectPath, PersonalPath: personalPath, Logger: logger}
}

func defaultPersonalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".grove", "personal-learnings.md")
}

func (b *MarkdownBackend) pathForScope(scope learning.Scope) string {
	if scope == learning.ScopePersonal {
		return b.PersonalPath
	}
	return b.ProjectPath
}

// Name implements Backend.
func (b *MarkdownBackend) Name() string { return "markdown" }

// Ping implements Backend: ensures the project file's parent directory
// exists and is usable.
func (b *MarkdownBackend) Ping() bool {
	dir := filepath.Dir(b.ProjectPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		groveerr.FailOpenLog(b.Logger, "markdown.ping", err)
		return false
	}
	return true
}

// Write implements Backend.
func (b *MarkdownBackend) Write(l learning.Learning) (WriteResult, error) {
	if l.Scope == learning.ScopeEphemeral {
		return WriteResult{
			Success:    true,
			LearningID: l.ID,
			Location:   "ephemeral",
			Message:    "Ephemeral learning discarded (not persisted)",
		}, nil
	}

	path := b.pathForScope(l.Scope)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return WriteResult{}, groveerr.Backend("markdown.write", err)
	}

	sanitized := learning.Sanitize(l)
	rendered := formatLearningAsMarkdown(sanitized)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return WriteResult{}, groveerr.Backend("markdown.write", err)
	}
	defer f.Close()

	if _, err := f.WriteString(rendered); err != nil {
		return WriteResult{}, groveerr.Backend("markdown.write", err)
	}

	result := WriteResult{Success: true, LearningID: l.ID, Location: path}
	if learning.WasSanitized(l) {
		result.Message = "Content was sanitized"
	}
	return result, nil
}

// Search implements Backend.
func (b *MarkdownBackend) Search(query SearchQuery, filters SearchFilters) ([]SearchResult, error) {
	all, err := b.parseAllLearnings()
	if err != nil {
		return nil, err
	}

	var matched []learning.Learning
	for _, l := range all {
		if filters.Matches(l) {
			matched = append(matched, l)
		}
	}

	results := make([]SearchResult, 0, len(matched))
	for _, l := range matched {
		rel := computeRelevance(query, l)
		if query.IsEmpty() {
			rel = 1.0
		}
		results = append(results, SearchResult{Learning: l, Relevance: rel})
	}

	sortResultsByRelevanceDesc(results)
	return truncate(results, filters.MaxResults), nil
}

// ListAll implements Backend via the shared default.
func (b *MarkdownBackend) ListAll() ([]learning.Learning, error) { return ListAll(b) }

// Archive implements Backend.
func (b *MarkdownBackend) Archive(id string) error {
	return b.updateStatus(id, learning.StatusArchived)
}

// Restore implements Backend.
func (b *MarkdownBackend) Restore(id string) error {
	return b.updateStatus(id, learning.StatusActive)
}

func (b *MarkdownBackend) updateStatus(id string, status learning.Status) error {
	for _, path := range []string{b.ProjectPath, b.PersonalPath} {
		found, err := updateStatusInFile(path, id, status)
		if err != nil {
			return groveerr.Backend("markdown.update_status", err)
		}
		if found {
			return nil
		}
	}
	return groveerr.New(groveerr.KindBackend, "markdown.update_status", fmt.Errorf("learning %s not found", id))
}

// updateStatusInFile returns found=false (no error) when the file is absent
// or doesn't contain id, matching the original's "keep looking" semantics.
func updateStatusInFile(path string, id string, status learning.Status) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	records, err := parseLearningsMarkdown(string(data))
	if err != nil {
		return false, err
	}

	found := false
	for i := range records {
		if records[i].ID == id {
			records[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}

	var b strings.Builder
	for _, r := range records {
		b.WriteString(formatLearningAsMarkdown(r))
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// NextID implements Backend.
func (b *MarkdownBackend) NextID() (string, error) {
	ids, err := b.NextIDs(1)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// NextIDs implements Backend: a single scan of both files produces a
// contiguous, race-free-within-the-call block of IDs. Counters are never
// wrapped modulo 1000 — 1000, 1001, ... are valid.
func (b *MarkdownBackend) NextIDs(count int) ([]string, error) {
	today := time.Now().UTC()
	prefix := learning.DatePrefix(today)

	all, err := b.parseAllLearnings()
	if err != nil {
		return nil, err
	}

	next := 0
	for _, l := range all {
		if strings.HasPrefix(l.ID, prefix) {
			if n, err := strconv.Atoi(strings.TrimPrefix(l.ID, prefix)); err == nil && n+1 > next {
				next = n + 1
			}
		}
	}

	ids := make([]string, count)
	for i := 0; i < count; i++ {
		ids[i] = learning.NewID(today, next+i)
	}
	return ids, nil
}

func (b *MarkdownBackend) parseAllLearnings() ([]learning.Learning, error) {
	var all []learning.Learning
	for _, path := range []string{b.ProjectPath, b.PersonalPath} {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, groveerr.Backend("markdown.parse", err)
		}
		records, err := parseLearningsMarkdown(string(data))
		if err != nil {
			return nil, groveerr.Serde("markdown.parse", err)
		}
		all = append(all, records...)
	}
	return all, nil
}

// computeRelevance scores a learning against query using the shared score
// package, so this backend and the relevance package can't drift apart on
// weights or case-folding.
func computeRelevance(query SearchQuery, l learning.Learning) float64 {
	return score.Combined(query.toScoreQuery(), score.Subject{
		Tags:         l.Tags,
		ContextFiles: l.ContextFiles,
		Summary:      l.Summary,
		Detail:       l.Detail,
		TicketID:     l.TicketID,
	})
}

// toScoreQuery converts a SearchQuery to the shared score package's Query
// shape.
func (q SearchQuery) toScoreQuery() score.Query {
	return score.Query{Tags: q.Tags, Files: q.Files, Keywords: q.Keywords, TicketID: q.TicketID}
}

// formatLearningAsMarkdown renders l using the fixed record template.
func formatLearningAsMarkdown(l learning.Learning) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", l.ID)
	fmt.Fprintf(&b, "**Category:** %s\n", l.Category)
	fmt.Fprintf(&b, "**Summary:** %s\n", l.Summary)
	fmt.Fprintf(&b, "**Scope:** %s | **Confidence:** %s | **Status:** %s\n", l.Scope, l.Confidence, l.Status)
	if len(l.Tags) > 0 {
		tags := make([]string, len(l.Tags))
		for i, t := range l.Tags {
			tags[i] = "#" + t
		}
		fmt.Fprintf(&b, "**Tags:** %s\n", strings.Join(tags, " "))
	}
	if l.TicketID != "" {
		fmt.Fprintf(&b, "**Ticket:** %s | **Session:** %s\n", l.TicketID, l.SessionID)
	} else {
		fmt.Fprintf(&b, "**Session:** %s\n", l.SessionID)
	}
	if len(l.ContextFiles) > 0 {
		fmt.Fprintf(&b, "**Context Files:** %s\n", strings.Join(l.ContextFiles, ", "))
	}
	if len(l.CriteriaMet) > 0 {
		names := make([]string, len(l.CriteriaMet))
		for i, c := range l.CriteriaMet {
			names[i] = c.String()
		}
		fmt.Fprintf(&b, "**Criteria:** %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "**Created:** %s\n", l.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString("\n")
	b.WriteString(l.Detail)
	b.WriteString("\n\n---\n\n")
	return b.String()
}

// recordSegment is a line range in the source file holding one record's
// metadata+detail body, bounded by its opening "## <id>" heading and the
// next thematic break ("---") or end of file.
type recordSegment struct {
	id         string
	start, end int // line indices into the split-by-"\n" source
}

// segmentRecords scans source line by line for record boundaries: a line
// beginning with "## " opens a record, a line that is exactly "---" closes
// it. This is a direct line-state-machine scan rather than an AST walk:
// goldmark's ThematicBreak nodes carry no Lines() segment (only content
// blocks like Heading do), so deriving offsets from the AST for "---" itself
// produced out-of-range slices. Scanning raw lines sidesteps that entirely
// and matches the parser spec's documented state machine.
func segmentRecords(source []byte) []recordSegment {
	lines := strings.Split(string(source), "\n")

	var segments []recordSegment
	var currentID string
	var currentStart int
	open := false

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "## "):
			if open {
				segments = append(segments, recordSegment{id: currentID, start: currentStart, end: i})
			}
			currentID = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			currentStart = i + 1
			open = true

		case strings.TrimSpace(line) == "---":
			if open {
				segments = append(segments, recordSegment{id: currentID, start: currentStart, end: i})
				open = false
			}
		}
	}

	if open {
		segments = append(segments, recordSegment{id: currentID, start: currentStart, end: len(lines)})
	}
	return segments
}

// parseLearningsMarkdown parses every record in a Markdown learnings file.
func parseLearningsMarkdown(content string) ([]learning.Learning, error) {
	lines := strings.Split(content, "\n")
	segments := segmentRecords([]byte(content))

	out := make([]learning.Learning, 0, len(segments))
	for _, seg := range segments {
		if seg.id == "" {
			continue
		}
		body := strings.Join(lines[seg.start:seg.end], "\n")
		fields, detail := parseRecordBody(body)
		out = append(out, fieldsToLearning(seg.id, fields, detail))
	}
	return out, nil
}

type recordFields struct {
	category     string
	summary      string
	scope        string
	confidence   string
	status       string
	tags         []string
	ticket       string
	session      string
	contextFiles []string
	criteria     []string
	created      string
}

func parseRecordBody(body string) (recordFields, string) {
	lines := strings.Split(body, "\n")
	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}

	var fields recordFields
	inMetadata := true
	var detailLines []string

	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if inMetadata {
			if trimmed == "" {
				inMetadata = false
				continue
			}
			if strings.HasPrefix(trimmed, "**") {
				applyMetadataLine(trimmed, &fields)
				continue
			}
			inMetadata = false
		}
		detailLines = append(detailLines, line)
	}

	detail := strings.Trim(strings.Join(detailLines, "\n"), "\n")
	return fields, detail
}

// pipeSplitLabels are the only metadata lines §4.4's template ever packs
// multiple "**label:** value" segments onto with a "|" separator: the
// Scope/Confidence/Status line and the Ticket/Session line. Every other
// line (notably Summary, whose sanitiser escapes literal "|" to "\|" so it
// survives round-tripping) is a single label/value pair and must not be
// split on "|", or an escaped pipe in the value truncates it.
var pipeSplitLabels = map[string]bool{
	"Scope":      true,
	"Confidence": true,
	"Status":     true,
	"Ticket":     true,
	"Session":    true,
}

func applyMetadataLine(line string, f *recordFields) {
	label, _, ok := splitLabel(line)
	if !ok {
		return
	}

	if !pipeSplitLabels[label] {
		_, value, _ := splitLabel(line)
		applyField(label, value, f)
		return
	}

	for _, seg := range strings.Split(line, "|") {
		seg = strings.TrimSpace(seg)
		segLabel, value, ok := splitLabel(seg)
		if !ok {
			continue
		}
		applyField(segLabel, value, f)
	}
}

func applyField(label, value string, f *recordFields) {
	switch label {
	case "Category":
		f.category = value
	case "Summary":
		f.summary = value
	case "Scope":
		f.scope = value
	case "Confidence":
		f.confidence = value
	case "Status":
		f.status = value
	case "Tags":
		f.tags = parseTagsLine(value)
	case "Ticket":
		f.ticket = value
	case "Session":
		f.session = value
	case "Context Files":
		f.contextFiles = splitCommaTrim(value)
	case "Criteria":
		f.criteria = splitCommaTrim(value)
	case "Created":
		f.created = value
	}
}

func splitLabel(seg string) (label, value string, ok bool) {
	if !strings.HasPrefix(seg, "**") {
		return "", "", false
	}
	idx := strings.Index(seg, ":**")
	if idx < 0 {
		return "", "", false
	}
	label = strings.TrimPrefix(seg[:idx], "**")
	value = strings.TrimSpace(seg[idx+len(":**"):])
	return label, value, true
}

func parseTagsLine(value string) []string {
	var tags []string
	for _, tok := range strings.Fields(value) {
		tags = append(tags, strings.TrimPrefix(tok, "#"))
	}
	return tags
}

func splitCommaTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fieldsToLearning(id string, f recordFields, detail string) learning.Learning {
	category, ok := learning.ParseCategory(f.category)
	if !ok {
		category = learning.CategoryPattern
	}
	scope, ok := learning.ParseScope(f.scope)
	if !ok {
		scope = learning.ScopeProject
	}
	confidence, ok := learning.ParseConfidence(f.confidence)
	if !ok {
		confidence = learning.ConfidenceMedium
	}
	status, ok := learning.ParseStatus(f.status)
	if !ok {
		status = learning.StatusActive
	}

	var criteria []learning.Criterion
	for _, c := range f.criteria {
		if crit, ok := learning.ParseCriterion(c); ok {
			criteria = append(criteria, crit)
		}
	}

	created := time.Now().UTC()
	if f.created != "" {
		if t, err := time.Parse(time.RFC3339, f.created); err == nil {
			created = t
		}
	}

	return learning.Learning{
		ID:            id,
		SchemaVersion: learning.SchemaVersion,
		Category:      category,
		Summary:       f.summary,
		Detail:        detail,
		Scope:         scope,
		Confidence:    confidence,
		CriteriaMet:   criteria,
		Tags:          f.tags,
		SessionID:     f.session,
		TicketID:      f.ticket,
		Timestamp:     created,
		ContextFiles:  f.contextFiles,
		Status:        status,
	}
}

// sortByID sorts learnings by ID, in place.
func sortByID(learnings []learning.Learning) {
	sort.Slice(learnings, func(i, j int) bool { return learnings[i].ID < learnings[j].ID })
}
