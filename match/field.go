package match

import (
	"regexp"
	"strings"
)

var fieldSeparator = regexp.MustCompile(`,\s*`)

// SplitField trims s and splits it on a comma optionally followed by
// whitespace. Empty input yields an empty, non-nil slice.
func SplitField(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	return fieldSeparator.Split(s, -1)
}
