// Package email defines the core mail data model used throughout mail-digest.
package email

import "strings"

// Message represents a parsed RFC 5322 message as an ordered tree of parts.
type Message struct {
	From       string
	Subject    string
	MessageID  string
	RawHeaders map[string][]string
	Root       *Part
}

// Part is one node of a MIME message. Leaf parts carry a decoded payload;
// multipart containers carry children instead.
type Part struct {
	// MediaType is the lowercase content type without parameters,
	// e.g. "text/html" or "image/png".
	MediaType string

	// ContentID is the raw Content-ID header value, delimiters included,
	// or "" when absent.
	ContentID string

	// Filename is the decoded filename from Content-Disposition or the
	// Content-Type name parameter, or "" when absent.
	Filename string

	// Disposition is the lowercase disposition token ("attachment",
	// "inline") or "" when absent.
	Disposition string

	// Payload is the part content after transfer decoding. Nil for
	// multipart containers.
	Payload []byte

	Children []*Part
}

// Leaves returns all leaf parts of the message in document order
// (depth-first, as they appear in the raw message).
func (m *Message) Leaves() []*Part {
	if m.Root == nil {
		return nil
	}
	var out []*Part
	m.Root.walk(func(p *Part) {
		if len(p.Children) == 0 {
			out = append(out, p)
		}
	})
	return out
}

func (p *Part) walk(fn func(*Part)) {
	fn(p)
	for _, c := range p.Children {
		c.walk(fn)
	}
}

// IsImage reports whether the part's major content type is "image".
func (p *Part) IsImage() bool {
	return strings.HasPrefix(p.MediaType, "image/")
}

// Email represents an outbound message handed to a delivery provider.
type Email struct {
	To          []string
	Cc          []string
	Subject     string
	TextBody    string
	HtmlBody    string
	Attachments []Attachment
}

// Attachment represents a file attached to an outbound email message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}
