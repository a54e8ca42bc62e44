// Package normalizer turns a parsed mail message into one self-contained HTML
// document: the most informative renderable body part, with inline images
// embedded as data URIs and no external references left behind.
package normalizer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/shineum/mail-digest/internal/email"
)

// ErrNoRenderableBody is returned by Normalize when the message contains
// neither a text/html nor a text/plain part. It marks a reportable condition,
// not a failure: callers should log and move on rather than abort.
var ErrNoRenderableBody = errors.New("no renderable body in message")

// inlineImage is one image part collected for embedding.
type inlineImage struct {
	key      string
	mimeType string
	filename string
	data     string // base64-encoded payload
}

// Normalize produces a self-contained HTML document from a parsed message.
// The body is the first text/html leaf in document order, or the first
// text/plain leaf wrapped in a minimal HTML skeleton. Every image part is
// embedded as a data URI, replacing cid: references and bare key references.
// The result always begins with a doctype or <html> root tag.
func Normalize(msg *email.Message) (string, error) {
	body, ok := selectBody(msg)
	if !ok {
		return "", ErrNoRenderableBody
	}
	body = substituteImages(body, collectImages(msg))
	return finalize(body), nil
}

// selectBody picks the part to render: text/html wins over text/plain, both
// in document order. Plain text is escaped and wrapped in a preformatted
// block so whitespace survives rendering.
func selectBody(msg *email.Message) (string, bool) {
	for _, part := range msg.Leaves() {
		if part.MediaType == "text/html" {
			return Decode(part.Payload), true
		}
	}
	for _, part := range msg.Leaves() {
		if part.MediaType == "text/plain" {
			text := html.EscapeString(Decode(part.Payload))
			return wrapDocument("<pre>" + text + "</pre>"), true
		}
	}
	return "", false
}

// collectImages gathers every image leaf in document order. Each image is
// keyed by its Content-ID stripped of angle brackets, falling back to its
// filename, falling back to a synthetic image_<n> key. A repeated key keeps
// its position but takes the later image's content.
func collectImages(msg *email.Message) []inlineImage {
	var images []inlineImage
	index := make(map[string]int)

	for _, part := range msg.Leaves() {
		if !part.IsImage() {
			continue
		}

		key := strings.Trim(part.ContentID, "<>")
		if key == "" {
			key = part.Filename
		}
		if key == "" {
			key = fmt.Sprintf("image_%d", len(images))
		}

		filename := part.Filename
		if filename == "" {
			filename = key
		}

		img := inlineImage{
			key:      key,
			mimeType: part.MediaType,
			filename: filename,
			data:     base64.StdEncoding.EncodeToString(part.Payload),
		}

		if i, ok := index[key]; ok {
			images[i] = img
			continue
		}
		index[key] = len(images)
		images = append(images, img)
	}

	return images
}

// substituteImages replaces image references in the body with data URIs.
// Both cid:<key> and bare <key> occurrences are rewritten, covering mail
// clients that reference images without the cid: prefix. All keys are
// substituted in a single pass so inserted URIs are never rescanned: a key
// occurring inside another image's base64 payload stays untouched. Longer
// keys take priority when two match at the same position; ties keep
// collection order.
func substituteImages(body string, images []inlineImage) string {
	if len(images) == 0 {
		return body
	}

	ordered := make([]inlineImage, len(images))
	copy(ordered, images)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].key) > len(ordered[j].key)
	})

	pairs := make([]string, 0, 4*len(ordered))
	for _, img := range ordered {
		uri := "data:" + img.mimeType + ";base64," + img.data
		pairs = append(pairs, "cid:"+img.key, uri, img.key, uri)
	}
	return strings.NewReplacer(pairs...).Replace(body)
}

// finalize wraps the body in a minimal HTML document unless it already
// starts with a doctype or <html> tag. Idempotent: an already-wrapped
// document passes through unchanged.
func finalize(body string) string {
	head := strings.ToLower(strings.TrimSpace(body))
	if strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html") {
		return body
	}
	return wrapDocument(body)
}

func wrapDocument(body string) string {
	return "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n</head>\n<body>\n" +
		body + "\n</body>\n</html>\n"
}
