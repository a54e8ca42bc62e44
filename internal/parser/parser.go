// Package parser provides RFC 5322 email message parsing with MIME multipart support.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	"github.com/shineum/mail-digest/internal/email"
)

// Parse parses a raw RFC 5322 email message into a Message part tree.
// Multipart bodies become container parts with children, preserving the
// document order of the raw message. Transfer encodings (base64,
// quoted-printable) are decoded into each leaf's payload. A message that
// cannot be read at all yields an error; individual malformed parts are
// logged and skipped.
func Parse(raw []byte) (*email.Message, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	result := &email.Message{
		RawHeaders: make(map[string][]string),
	}
	for key, values := range msg.Header {
		result.RawHeaders[key] = values
	}
	result.From = msg.Header.Get("From")
	result.Subject = decodeWords(msg.Header.Get("Subject"))
	result.MessageID = msg.Header.Get("Message-Id")

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If content type is unparseable, treat as plain text
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		root := &email.Part{MediaType: mediaType}
		if err := parseMultipart(msg.Body, boundary, root); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		result.Root = root
		return result, nil
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	body, err = decodeTransfer(body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode message body: %w", err)
	}
	result.Root = &email.Part{
		MediaType: mediaType,
		Payload:   body,
	}
	return result, nil
}

// parseMultipart reads every part within one boundary, appending a child node
// to parent for each. Nested multiparts recurse into their own container node.
func parseMultipart(body io.Reader, boundary string, parent *email.Part) error {
	reader := multipart.NewReader(body, boundary)

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partContentType := part.Header.Get("Content-Type")
		if partContentType == "" {
			partContentType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partContentType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partContentType,
				"error", err,
			)
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			nestedBoundary := params["boundary"]
			if nestedBoundary == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			nested := &email.Part{MediaType: mediaType}
			if err := parseMultipart(part, nestedBoundary, nested); err != nil {
				slog.Warn("failed to parse nested multipart",
					"error", err,
				)
				continue
			}
			parent.Children = append(parent.Children, nested)
			continue
		}

		content, err := readPartContent(part)
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		parent.Children = append(parent.Children, &email.Part{
			MediaType:   mediaType,
			ContentID:   part.Header.Get("Content-Id"),
			Filename:    extractFilename(part, params),
			Disposition: extractDisposition(part.Header),
			Payload:     content,
		})
	}

	return nil
}

// readPartContent reads the full content of a MIME part, handling
// Content-Transfer-Encoding base64. Quoted-printable is decoded by the
// multipart reader itself.
func readPartContent(part *multipart.Part) ([]byte, error) {
	raw, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}
	encoding := part.Header.Get("Content-Transfer-Encoding")
	if strings.EqualFold(strings.TrimSpace(encoding), "quoted-printable") {
		// Already decoded transparently by mime/multipart.
		return raw, nil
	}
	return decodeTransfer(raw, encoding)
}

// decodeTransfer decodes a Content-Transfer-Encoding applied to raw content.
// Identity encodings ("7bit", "8bit", "binary", empty) pass through.
func decodeTransfer(raw []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			// Try with RawStdEncoding for unpadded base64
			decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
			if err != nil {
				return nil, fmt.Errorf("failed to decode base64 content: %w", err)
			}
		}
		return decoded, nil
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
		if err != nil {
			return nil, fmt.Errorf("failed to decode quoted-printable content: %w", err)
		}
		return decoded, nil
	default:
		return raw, nil
	}
}

// extractFilename extracts the filename from a MIME part, checking both
// Content-Disposition and Content-Type parameters. RFC 2047 encoded words
// in the filename are decoded.
func extractFilename(part *multipart.Part, params map[string]string) string {
	if fn := part.FileName(); fn != "" {
		return decodeWords(fn)
	}
	if name, ok := params["name"]; ok && name != "" {
		return decodeWords(name)
	}
	return ""
}

// extractDisposition returns the lowercase disposition token ("attachment",
// "inline") or "" when the header is absent or malformed.
func extractDisposition(header textproto.MIMEHeader) string {
	raw := header.Get("Content-Disposition")
	if raw == "" {
		return ""
	}
	disposition, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(raw, ";", 2)[0]))
	}
	return strings.ToLower(disposition)
}

// decodeWords decodes RFC 2047 encoded words in a header value. Values that
// fail to decode are returned as-is rather than dropped.
func decodeWords(value string) string {
	decoder := &mime.WordDecoder{}
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		slog.Warn("failed to decode header value", "value", value, "error", err)
		return value
	}
	return decoded
}
