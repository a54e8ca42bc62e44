package parser

import (
	"net/mail"
	"strings"
)

// ExtractAddress returns the bare address component of a From-style header
// value, e.g. `"Jane Doe" <jane@example.com>` yields "jane@example.com".
// Malformed input degrades to "" rather than an error so callers can carry
// on with a missing sender.
func ExtractAddress(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return ""
	}
	return addr.Address
}
