package memory

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/madhatter5501/learngate/groveerr"
	"github.com/madhatter5501/learngate/learning"
)

const totalRecallIDPrefix = "grove:"
const totalRecallIDMaxLen = 48

// TotalRecallBackend writes daily Markdown logs under <memory_dir>/daily and
// reads both those and the read-only <memory_dir>/registers tree back.
// Personal-scope learnings bypass the daily log entirely and go to the same
// personal file the Markdown backend uses, just with a "grove:" ID prefix
// instead of a bare "cl_" one.
type TotalRecallBackend struct {
	MemoryDir    string
	PersonalPath string
	// DayLimit bounds how many of the most recent daily logs Search walks.
	// 0 means unlimited.
	DayLimit int
	Logger   *slog.Logger

	now func() time.Time
}

// NewTotalRecallBackend builds a backend rooted at memoryDir, with the
// personal file defaulting to "<home>/.grove/personal-learnings.md".
func NewTotalRecallBackend(memoryDir string, logger *slog.Logger) *TotalRecallBackend {
	return NewTotalRecallBackendWithPaths(memoryDir, defaultPersonalPath(), logger)
}

// NewTotalRecallBackendWithPaths builds a backend with explicit paths,
// primarily for tests.
func NewTotalRecallBackendWithPaths(memoryDir, personalPath string, logger *slog.Logger) *TotalRecallBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &TotalRecallBackend{
		MemoryDir:    memoryDir,
		PersonalPath: personalPath,
		DayLimit:     60,
		Logger:       logger,
		now:          time.Now,
	}
}

func (b *TotalRecallBackend) clock() time.Time {
	if b.now != nil {
		return b.now().UTC()
	}
	return time.Now().UTC()
}

// Name implements Backend.
func (b *TotalRecallBackend) Name() string { return "total-recall" }

// Ping implements Backend: confirms the daily directory is usable.
func (b *TotalRecallBackend) Ping() bool {
	if err := os.MkdirAll(b.dailyDir(), 0o755); err != nil {
		groveerr.FailOpenLog(b.Logger, "total_recall.ping", err)
		return false
	}
	return true
}

func (b *TotalRecallBackend) dailyDir() string    { return filepath.Join(b.MemoryDir, "daily") }
func (b *TotalRecallBackend) registersDir() string { return filepath.Join(b.MemoryDir, "registers") }

func (b *TotalRecallBackend) dailyPath(day time.Time) string {
	return filepath.Join(b.dailyDir(), day.Format("2006-01-02")+".md")
}

// Write implements Backend. Personal scope writes to the shared personal
// file (grove:-prefixed note); every other scope, including Ephemeral,
// writes to today's daily log. Any file-operation failure is fail-open: a
// success=false WriteResult, logged at warn level, never an error return.
func (b *TotalRecallBackend) Write(l learning.Learning) (WriteResult, error) {
	sanitized := learning.Sanitize(l)

	path := b.dailyPath(b.clock())
	if l.Scope == learning.ScopePersonal {
		path = b.PersonalPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		groveerr.FailOpenLog(b.Logger, "total_recall.write", err)
		return WriteResult{Success: false, LearningID: l.ID, Message: "could not create memory directory"}, nil
	}

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		groveerr.FailOpenLog(b.Logger, "total_recall.write", err)
		return WriteResult{Success: false, LearningID: l.ID, Message: "could not read daily log"}, nil
	}

	updated := insertLearningsNote(string(existing), formatGroveNote(sanitized, b.clock()))
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		groveerr.FailOpenLog(b.Logger, "total_recall.write", err)
		return WriteResult{Success: false, LearningID: l.ID, Message: "could not write daily log"}, nil
	}

	result := WriteResult{Success: true, LearningID: l.ID, Location: path}
	if learning.WasSanitized(l) {
		result.Message = "Content was sanitized"
	}
	return result, nil
}

// insertLearningsNote inserts note (already blank-line-separated) under the
// first "## Learnings" section, at the boundary formed by the next "## "
// heading or end of file. If no such section exists, one is appended.
func insertLearningsNote(content, note string) string {
	const header = "## Learnings"
	idx := strings.Index(content, header)
	if idx < 0 {
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		return content + "\n" + header + "\n\n" + note + "\n"
	}

	sectionBodyStart := idx + len(header)
	rest := content[sectionBodyStart:]

	end := len(rest)
	if next := nextHeadingOffset(rest); next >= 0 {
		end = next
	}

	before := content[:sectionBodyStart] + rest[:end]
	after := rest[end:]

	before = strings.TrimRight(before, "\n")
	insertion := before + "\n\n" + note + "\n"
	if after != "" {
		insertion += "\n" + strings.TrimLeft(after, "\n")
	}
	return insertion
}

// nextHeadingOffset returns the byte offset, within s, of the next line
// starting with "## " (skipping the leading newline that always follows the
// opening header), or -1 if none exists.
func nextHeadingOffset(s string) int {
	lines := strings.SplitAfter(s, "\n")
	offset := 0
	for i, line := range lines {
		if i == 0 {
			offset += len(line)
			continue
		}
		if strings.HasPrefix(line, "## ") {
			return offset
		}
		offset += len(line)
	}
	return -1
}

// formatGroveNote renders l using the Total Recall note template:
//
//	[HH:MM] **<Category>** (grove:<id>): <summary>
//	> <detail line 1>
//	> <detail line 2>
//
//	Tags: #t1 #t2 | Confidence: <L> | Ticket: <id> | Files: f1, f2
func formatGroveNote(l learning.Learning, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] **%s** (%s%s): %s\n", at.Format("15:04"), l.Category, totalRecallIDPrefix, l.ID, l.Summary)
	for _, line := range strings.Split(l.Detail, "\n") {
		fmt.Fprintf(&b, "> %s\n", line)
	}
	b.WriteString("\n")

	var footer []string
	if len(l.Tags) > 0 {
		tags := make([]string, len(l.Tags))
		for i, t := range l.Tags {
			tags[i] = "#" + t
		}
		footer = append(footer, "Tags: "+strings.Join(tags, " "))
	}
	footer = append(footer, "Confidence: "+l.Confidence.String())
	if l.TicketID != "" {
		footer = append(footer, "Ticket: "+l.TicketID)
	}
	if len(l.ContextFiles) > 0 {
		footer = append(footer, "Files: "+strings.Join(l.ContextFiles, ", "))
	}
	b.WriteString(strings.Join(footer, " | "))
	return b.String()
}

// Search implements Backend: walks daily logs (most recent first, bounded by
// DayLimit) and the read-only registers tree, parses grove blocks out of
// each, applies filters, scores, sorts, and truncates. Personal-scope
// learnings in the shared personal file are included too.
func (b *TotalRecallBackend) Search(query SearchQuery, filters SearchFilters) ([]SearchResult, error) {
	all, err := b.parseAll()
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(all))
	for _, l := range all {
		if !filters.Matches(l) {
			continue
		}
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
func (b *TotalRecallBackend) ListAll() ([]learning.Learning, error) { return ListAll(b) }

// Archive implements Backend: total recall entries are append-only daily
// logs by design, so status mutation is not supported here.
func (b *TotalRecallBackend) Archive(id string) error {
	return groveerr.New(groveerr.KindBackend, "total_recall.archive", fmt.Errorf("not supported"))
}

// Restore implements Backend; see Archive.
func (b *TotalRecallBackend) Restore(id string) error {
	return groveerr.New(groveerr.KindBackend, "total_recall.restore", fmt.Errorf("not supported"))
}

// NextID implements Backend.
func (b *TotalRecallBackend) NextID() (string, error) {
	ids, err := b.NextIDs(1)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// NextIDs implements Backend, scanning every parsed learning's ID for
// today's date prefix. Counters are never wrapped modulo 1000.
func (b *TotalRecallBackend) NextIDs(count int) ([]string, error) {
	today := b.clock()
	prefix := learning.DatePrefix(today)

	all, err := b.parseAll()
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

func (b *TotalRecallBackend) parseAll() ([]learning.Learning, error) {
	var all []learning.Learning

	days, err := b.recentDailyPaths()
	if err != nil {
		return nil, err
	}
	for _, path := range days {
		learnings, err := b.parseFile(path, learning.ScopeProject)
		if err != nil {
			return nil, err
		}
		all = append(all, learnings...)
	}

	registers, err := listMarkdownFiles(b.registersDir())
	if err != nil {
		return nil, err
	}
	for _, path := range registers {
		learnings, err := b.parseFile(path, learning.ScopeProject)
		if err != nil {
			return nil, err
		}
		all = append(all, learnings...)
	}

	if data, err := os.ReadFile(b.PersonalPath); err == nil {
		all = append(all, parseGroveBlocks(string(data), learning.ScopePersonal)...)
	} else if !os.IsNotExist(err) {
		return nil, groveerr.Backend("total_recall.parse", err)
	}

	return all, nil
}

func (b *TotalRecallBackend) parseFile(path string, defaultScope learning.Scope) ([]learning.Learning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, groveerr.Backend("total_recall.parse", err)
	}
	return parseGroveBlocks(string(data), defaultScope), nil
}

// recentDailyPaths returns daily/<date>.md paths in descending filename
// (most-recent-first) order, bounded by DayLimit.
func (b *TotalRecallBackend) recentDailyPaths() ([]string, error) {
	entries, err := os.ReadDir(b.dailyDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, groveerr.Backend("total_recall.list_daily", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	if b.DayLimit > 0 && len(names) > b.DayLimit {
		names = names[:b.DayLimit]
	}

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(b.dailyDir(), n)
	}
	return paths, nil
}

func listMarkdownFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, groveerr.Backend("total_recall.list_registers", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

var (
	groveHeaderRe = regexp.MustCompile(`(?m)^\[(\d{2}:\d{2})\]\s+\*\*([^*]+)\*\*\s+\(grove:([^)]{1,48})\):\s*(.*)$`)
	groveQuoteRe  = regexp.MustCompile(`^>\s?(.*)$`)
	groveFooterRe = regexp.MustCompile(`^Tags:\s*(.*?)(?:\s*\|\s*Confidence:\s*(.*?))?(?:\s*\|\s*Ticket:\s*(.*?))?(?:\s*\|\s*Files:\s*(.*))?$`)
)

// parseGroveBlocks extracts contiguous grove notes (header line, blockquote
// continuation lines, and the trailing Tags: footer) from content and parses
// each into a Learning. Malformed blocks are skipped, not fatal.
func parseGroveBlocks(content string, defaultScope learning.Scope) []learning.Learning {
	lines := strings.Split(content, "\n")
	var out []learning.Learning

	i := 0
	for i < len(lines) {
		m := groveHeaderRe.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}
		hhmm, categoryName, id, summary := m[1], strings.TrimSpace(m[2]), m[3], m[4]
		if len(id) > totalRecallIDMaxLen {
			id = id[:totalRecallIDMaxLen]
		}

		i++
		var detailLines []string
		for i < len(lines) {
			if dm := groveQuoteRe.FindStringSubmatch(lines[i]); dm != nil {
				detailLines = append(detailLines, dm[1])
				i++
				continue
			}
			break
		}

		var tagsLine string
		for i < len(lines) {
			if strings.TrimSpace(lines[i]) == "" {
				i++
				continue
			}
			if strings.HasPrefix(lines[i], "Tags:") {
				tagsLine = lines[i]
				i++
			}
			break
		}

		category, _ := learning.ParseCategory(categoryName)
		l := learning.Learning{
			ID:          id,
			Category:    category,
			Summary:     strings.TrimSpace(summary),
			Detail:      strings.TrimSpace(strings.Join(detailLines, "\n")),
			Confidence:  learning.ConfidenceMedium,
			Status:      learning.StatusActive,
			Scope:       defaultScope,
			Timestamp:   reconstructTimestamp(id, hhmm),
			SchemaVersion: learning.SchemaVersion,
		}

		if tagsLine != "" {
			applyGroveFooter(tagsLine, &l)
		}
		out = append(out, l)
	}
	return out
}

func applyGroveFooter(line string, l *learning.Learning) {
	m := groveFooterRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	if tags := strings.TrimSpace(m[1]); tags != "" {
		for _, tok := range strings.Fields(tags) {
			l.Tags = append(l.Tags, strings.TrimPrefix(tok, "#"))
		}
	}
	if conf := strings.TrimSpace(m[2]); conf != "" {
		if c, ok := learning.ParseConfidence(conf); ok {
			l.Confidence = c
		}
	}
	if ticket := strings.TrimSpace(m[3]); ticket != "" {
		l.TicketID = ticket
	}
	if files := strings.TrimSpace(m[4]); files != "" {
		for _, f := range strings.Split(files, ",") {
			if f = strings.TrimSpace(f); f != "" {
				l.ContextFiles = append(l.ContextFiles, f)
			}
		}
	}
}

// reconstructTimestamp builds a timestamp from the ID's date portion plus
// the note's [HH:MM] header. A grove ID that isn't date-prefixed, or an
// unparsable clock, falls back to the current time.
func reconstructTimestamp(id, hhmm string) time.Time {
	parts := strings.SplitN(id, "_", 3)
	if len(parts) < 2 {
		return time.Now().UTC()
	}
	datePart := parts[len(parts)-1]
	if len(parts) >= 2 && len(parts[0]) == 8 {
		datePart = parts[0]
	} else if len(parts) >= 3 {
		datePart = parts[1]
	}

	day, err := time.Parse("20060102", datePart)
	if err != nil {
		return time.Now().UTC()
	}
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
}
