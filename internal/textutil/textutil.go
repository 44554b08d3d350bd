// Package textutil holds the pure text transforms applied to post bodies.
package textutil

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

var (
	lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)
	strict    = bluemonday.StrictPolicy()
)

// StripMarkup removes every HTML tag from s and decodes entities. Line
// breaks (<br>) become newlines.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	s = lineBreak.ReplaceAllString(s, "\n")
	return html.UnescapeString(strict.Sanitize(s))
}

// Truncate shortens s to at most n runes, appending Ellipsis when anything
// was cut. n <= 0 returns s unchanged.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + Ellipsis
}

// Preview strips markup, trims surrounding whitespace and truncates to n
// runes.
func Preview(s string, n int) string {
	return Truncate(strings.TrimSpace(StripMarkup(s)), n)
}

// SingleLine collapses all whitespace runs (including newlines) to one space.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
