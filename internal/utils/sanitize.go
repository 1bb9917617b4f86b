package utils

import (
	"regexp"
	"strings"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]+`)
	spaceRuns    = regexp.MustCompile(`\s{2,}`)
)

// NormalizeField cleans free-form listener input (song titles, artist names)
// before it enters the rotation: control characters go away, whitespace is
// collapsed and trimmed.
func NormalizeField(text string) string {
	clean := controlChars.ReplaceAllString(text, " ")
	clean = spaceRuns.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}

// Truncate caps a string at max runes, for display names and log lines.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
