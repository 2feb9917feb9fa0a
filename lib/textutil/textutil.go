package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CollapseSpace trims s and replaces inner whitespace runs with one space.
func CollapseSpace(s string) string {
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, " ")
}

// NormalizeName is the lookup form of a name: lowercase with whitespace
// collapsed.
func NormalizeName(name string) string {
	return strings.ToLower(CollapseSpace(name))
}
