// Package sanitize cleans free text typed by users before it is stored
// and later rendered into emails and PDFs.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes markup, including tags hidden behind HTML entities.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = html.UnescapeString(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips markup and control characters. Line breaks and tabs are kept
// so multi-line notes survive.
func Text(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, StripHTML(s)))
}

// TextPtr is a helper for optional string pointers
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}

// OptionalText is TextPtr that also maps blank input to nil.
func OptionalText(s *string) *string {
	result := TextPtr(s)
	if result == nil || *result == "" {
		return nil
	}
	return result
}
