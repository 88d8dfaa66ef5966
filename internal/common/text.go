package common

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes markup tags and collapses the leftover whitespace.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// SplitLines breaks semi-structured markup into trimmed, non-empty lines.
// <br> variants count as line breaks.
func SplitLines(s string) []string {
	s = strings.NewReplacer("<br/>", "\n", "<br />", "\n", "<br>", "\n").Replace(s)
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(StripHTML(line))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// HasAny returns true if s contains any of the substrings, case-insensitively.
func HasAny(s string, subs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
