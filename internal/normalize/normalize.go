// Package normalize provides the canonical forms used when comparing
// addresses and subjects across the mailbox and the tabular store.
package normalize

import (
	"net/mail"
	"regexp"
	"strings"
)

// replyMarker matches a single leading reply or forward marker.
var replyMarker = regexp.MustCompile(`(?i)^(?:re|fwd|fw|forward):\s*`)

// Email returns the canonical form of an address used for equality
// checks: surrounding whitespace trimmed, lowercased.
func Email(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Subject returns the canonical form of a subject used for thread
// grouping: one leading reply/forward marker removed, surrounding
// whitespace trimmed, lowercased. Markers past the first stay in place.
func Subject(subject string) string {
	s := replyMarker.ReplaceAllString(subject, "")
	return strings.ToLower(strings.TrimSpace(s))
}

// Address extracts the bare addr-spec from a From-style header value,
// dropping any display name. Multi-address headers yield the first
// entry. When the value does not parse as an RFC 5322 address at all,
// the part before the first comma is returned trimmed so grossly
// malformed headers still produce something comparable.
func Address(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	if a, err := mail.ParseAddress(header); err == nil {
		return a.Address
	}
	if list, err := mail.ParseAddressList(header); err == nil && len(list) > 0 {
		return list[0].Address
	}
	first := header
	if i := strings.IndexByte(header, ','); i >= 0 {
		first = header[:i]
	}
	return strings.TrimSpace(first)
}
