package roundservice

import (
	"regexp"
	"strings"
)

var boldPhrase = regexp.MustCompile(`\*\*(.+?)\*\*`)

// SpecTitle extracts a round's display title: the first **bold** phrase of
// its spec text, or "" when the spec has none yet.
func SpecTitle(spec string) string {
	if m := boldPhrase.FindStringSubmatch(spec); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// SpecSummary returns the first non-empty line of the spec text, for round
// listings that don't show the whole challenge.
func SpecSummary(spec string) string {
	for _, line := range strings.Split(spec, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
