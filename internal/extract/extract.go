// Package extract pulls candidate news URLs out of free-form model output.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// urlPattern matches an http(s) scheme followed by anything that is not
// whitespace, a quote, angle or curly brackets, square brackets, a pipe,
// a backslash, a caret or a backtick. RE2's \s is ASCII only, so vertical
// tab, the \x1c-\x1f separators, NEL and the Unicode space separators
// (NBSP, narrow NBSP, U+2000-U+200A, U+3000...) are listed explicitly.
var urlPattern = regexp.MustCompile("https?://[^\\s\\v\\x1c-\\x1f\\x85\\p{Z}<>\"{}|\\\\^`\\[\\]]+")

// minURLLength is exclusive: a URL must be longer than this.
const minURLLength = 10

// URLs returns the valid URLs found in text, in order of appearance.
// Duplicates are kept.
func URLs(text string) []string {
	return Validate(urlPattern.FindAllString(text, -1))
}

// Validate trims each candidate and keeps those with an http:// or https://
// prefix that are longer than minURLLength characters.
func Validate(candidates []string) []string {
	valid := make([]string, 0, len(candidates))
	for _, u := range candidates {
		u = strings.TrimSpace(u)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			continue
		}
		if utf8.RuneCountInString(u) <= minURLLength {
			continue
		}
		valid = append(valid, u)
	}
	return valid
}
