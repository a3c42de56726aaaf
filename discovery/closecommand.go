package discovery

import "strings"

var shellOperators = []string{"&&", "||", "|", ";", "&"}

// MatchCloseCommand reports the ticketing system a ticket-close shell
// command belongs to, or ("", false) if it doesn't match one of the three
// recognised concrete forms. This is a security-sensitive matcher: any
// shell compound operator anywhere in the command — as its own
// whitespace-split token or as a suffix of any token — vetoes the match
// outright, to defeat command injection via a crafted close command.
func MatchCloseCommand(toolName, command string) (TicketingSystem, bool) {
	if toolName != "Bash" {
		return "", false
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", false
	}

	for _, f := range fields {
		for _, op := range shellOperators {
			if f == op || strings.HasSuffix(f, op) {
				return "", false
			}
		}
	}

	switch {
	case matchesForm(fields, "tissue", "status", "closed"):
		return TicketingTissue, true
	case matchesForm(fields, "beads", "close", ""):
		return TicketingBeads, true
	case matchesForm(fields, "beads", "complete", ""):
		return TicketingBeads, true
	default:
		return "", false
	}
}

// matchesForm reports whether fields begins with verb, subcommand, any
// single token standing in for <id>, then status (if non-empty). An empty
// status means "no further requirement beyond the id token".
func matchesForm(fields []string, verb, subcommand, status string) bool {
	if len(fields) < 3 {
		return false
	}
	if fields[0] != verb || fields[1] != subcommand {
		return false
	}
	if status == "" {
		return true
	}
	return len(fields) >= 4 && fields[3] == status
}
