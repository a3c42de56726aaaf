package learning

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerFold = cases.Lower(language.Und)

// SanitizeSummary keeps only the first line, escapes Markdown-significant
// characters ('#' and '|'), and trims surrounding whitespace. Idempotent:
// SanitizeSummary(SanitizeSummary(s)) == SanitizeSummary(s).
func SanitizeSummary(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "#|") {
		var b strings.Builder
		for _, r := range s {
			switch r {
			case '#':
				if !precededByBackslash(s, &b) {
					b.WriteByte('\\')
				}
				b.WriteRune(r)
			case '|':
				if !precededByBackslash(s, &b) {
					b.WriteByte('\\')
				}
				b.WriteRune(r)
			default:
				b.WriteRune(r)
			}
		}
		s = b.String()
	}
	return s
}

// precededByBackslash reports whether the builder so far already ends with an
// escaping backslash, so re-sanitising an already-escaped string doesn't
// double the backslashes (idempotence, P3).
func precededByBackslash(_ string, b *strings.Builder) bool {
	built := b.String()
	return strings.HasSuffix(built, "\\")
}

// SanitizeDetail balances unterminated code fences by appending a closing
// fence when the number of "```" occurrences is odd. Idempotent.
func SanitizeDetail(s string) string {
	s = strings.TrimRight(s, " \t\n")
	if strings.Count(s, "```")%2 != 0 {
		s += "\n```"
	}
	return s
}

// SanitizeTag lowercases (Unicode-aware) and drops any rune that isn't
// alphanumeric or a hyphen. Idempotent.
func SanitizeTag(s string) string {
	s = lowerFold.String(s)
	var b strings.Builder
	for _, r := range s {
		if isAlnum(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// SanitizeTags applies SanitizeTag to each tag, preserving order and dropping
// entries that sanitise to the empty string.
func SanitizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if st := SanitizeTag(t); st != "" {
			out = append(out, st)
		}
	}
	return out
}

// Sanitize returns a copy of l with Summary, Detail, and Tags sanitised.
func Sanitize(l Learning) Learning {
	out := l.Clone()
	out.Summary = SanitizeSummary(l.Summary)
	out.Detail = SanitizeDetail(l.Detail)
	out.Tags = SanitizeTags(l.Tags)
	return out
}

// WasSanitized reports whether Sanitize would change l in a way that differs
// from its current content (used to decide whether a WriteResult should note
// "Content was sanitized").
func WasSanitized(l Learning) bool {
	s := Sanitize(l)
	if s.Summary != l.Summary || s.Detail != l.Detail {
		return true
	}
	if len(s.Tags) != len(l.Tags) {
		return true
	}
	for i := range s.Tags {
		if s.Tags[i] != l.Tags[i] {
			return true
		}
	}
	return false
}
