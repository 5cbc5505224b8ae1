// Package sanitize provides pure string-cleaning helpers for untrusted
// request input: free-text fields, email addresses, and user-agent strings.
package sanitize

import (
	"regexp"
	"strings"
)

const (
	// MaxFreeTextLength caps free-text fields after cleaning.
	MaxFreeTextLength = 1000
	// MaxEmailLength is the RFC 5321 maximum mailbox length.
	MaxEmailLength = 320

	minUserAgentLength = 10
	maxUserAgentLength = 500
)

var (
	// javascript: and data: URI prefixes, matched anywhere in the input
	protocolPattern = regexp.MustCompile(`(?i)(javascript|data):`)

	// heuristic for inline event-handler attributes such as onclick=
	eventHandlerPattern = regexp.MustCompile(`\w+=`)
)

// Substrings that identify automated clients; matched case-insensitively.
var botSignatures = []string{
	"bot",
	"crawler",
	"spider",
	"scraper",
	"curl",
	"wget",
	"python",
	"java",
	"phantom",
	"headless",
}

// FreeText cleans a free-text field for storage and display: surrounding
// whitespace is trimmed, angle brackets and script-ish protocol prefixes
// are stripped, inline event-handler lookalikes are removed, and the result
// is truncated to MaxFreeTextLength characters.
func FreeText(input string) string {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")
	s = protocolPattern.ReplaceAllString(s, "")
	s = eventHandlerPattern.ReplaceAllString(s, "")

	if runes := []rune(s); len(runes) > MaxFreeTextLength {
		s = string(runes[:MaxFreeTextLength])
	}
	return s
}

// EmailAddress normalizes an email address: lowercased, trimmed, and
// truncated to the RFC 5321 maximum. It does not attempt validation.
func EmailAddress(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	if runes := []rune(s); len(runes) > MaxEmailLength {
		s = string(runes[:MaxEmailLength])
	}
	return s
}

// IsPlausibleUserAgent reports whether a User-Agent header looks like a
// real browser: within sane length bounds and free of known automation
// signatures.
func IsPlausibleUserAgent(ua string) bool {
	if len(ua) < minUserAgentLength || len(ua) > maxUserAgentLength {
		return false
	}

	lower := strings.ToLower(ua)
	for _, sig := range botSignatures {
		if strings.Contains(lower, sig) {
			return false
		}
	}
	return true
}
