package stats

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/madhatter5501/learngate/groveerr"
)

// maxLogLine bounds the scanner buffer; generous for a JSON line holding a
// handful of short string fields.
const maxLogLine = 1 << 20

// EventLog is the append-only NDJSON event log at <project>/.grove/stats.log.
// Writers open with create+append and never fsync; readers tolerate and
// skip malformed lines rather than failing the whole read.
type EventLog struct {
	Path   string
	Logger *slog.Logger
}

// NewEventLog builds a log at path.
func NewEventLog(path string, logger *slog.Logger) *EventLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLog{Path: path, Logger: logger}
}

// Append writes e as one NDJSON line, creating the parent directory and the
// file itself on demand.
func (l *EventLog) Append(e Event) error {
	if err := os.MkdirAll(filepath.Dir(l.Path), 0o755); err != nil {
		return groveerr.Backend("stats.log.append", err)
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return groveerr.Backend("stats.log.append", err)
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return groveerr.Serde("stats.log.append", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return groveerr.Backend("stats.log.append", err)
	}
	return nil
}

// LineCount returns the number of non-blank lines in the log, the cache
// staleness key. A missing log counts as zero lines, not an error.
func (l *EventLog) LineCount() (int, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, groveerr.Backend("stats.log.line_count", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	count := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return count, groveerr.Backend("stats.log.line_count", err)
	}
	return count, nil
}

// ReadAll parses every line into an Event, in file order, skipping and
// logging malformed lines rather than failing the whole read. A missing log
// returns an empty slice, not an error.
func (l *EventLog) ReadAll() ([]Event, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, groveerr.Backend("stats.log.read_all", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)

	var events []Event
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			groveerr.FailOpenLog(l.Logger, "stats.log.read_all", groveerr.Serde("parse line", err))
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return events, groveerr.Backend("stats.log.read_all", err)
	}
	return events, nil
}
