// Package smtp implements a Provider that relays emails through an external
// SMTP server with STARTTLS and plain authentication.
package smtp

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/shineum/mail-digest/internal/email"
)

// SMTPProviderConfig holds the configuration for creating an SMTPProvider.
type SMTPProviderConfig struct {
	Host       string
	Port       string
	Username   string
	Password   string
	SenderName string
}

// sendFunc matches net/smtp.SendMail; replaced in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPProvider sends emails through an SMTP relay. The relay address and
// credentials come from configuration; the authenticated user is also the
// envelope sender.
type SMTPProvider struct {
	addr       string
	username   string
	password   string
	senderName string
	send       sendFunc
}

// New creates a new SMTPProvider with the given configuration.
func New(cfg SMTPProviderConfig) *SMTPProvider {
	return &SMTPProvider{
		addr:       net.JoinHostPort(cfg.Host, cfg.Port),
		username:   cfg.Username,
		password:   cfg.Password,
		senderName: cfg.SenderName,
		send:       smtp.SendMail,
	}
}

// newWithSendFunc creates an SMTPProvider with a custom send function,
// used for testing.
func newWithSendFunc(cfg SMTPProviderConfig, send sendFunc) *SMTPProvider {
	p := New(cfg)
	p.send = send
	return p
}

// Send delivers an email message through the SMTP relay. net/smtp upgrades
// the connection with STARTTLS when the server advertises it.
func (p *SMTPProvider) Send(ctx context.Context, msg *email.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := buildMessage(p.fromHeader(), msg)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	var auth smtp.Auth
	if p.username != "" && p.password != "" {
		host, _, err := net.SplitHostPort(p.addr)
		if err != nil {
			return fmt.Errorf("invalid SMTP address %q: %w", p.addr, err)
		}
		auth = smtp.PlainAuth("", p.username, p.password, host)
	}

	recipients := append(append([]string{}, msg.To...), msg.Cc...)
	if err := p.send(p.addr, auth, p.username, recipients, raw); err != nil {
		return fmt.Errorf("SMTP delivery failed: %w", err)
	}
	return nil
}

// Name returns the provider name.
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// fromHeader formats the From header, adding the configured display name
// when present.
func (p *SMTPProvider) fromHeader() string {
	if p.senderName == "" {
		return p.username
	}
	return fmt.Sprintf("%s <%s>", p.senderName, p.username)
}

// buildMessage constructs the raw MIME message: a multipart/mixed document
// with the body first and each attachment base64-encoded after it.
func buildMessage(from string, msg *email.Email) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	if len(msg.To) > 0 {
		fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	}
	if len(msg.Cc) > 0 {
		fmt.Fprintf(&buf, "Cc: %s\r\n", strings.Join(msg.Cc, ", "))
	}
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", msg.Subject))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	bodyHeader := make(textproto.MIMEHeader)
	if msg.HtmlBody != "" {
		bodyHeader.Set("Content-Type", "text/html; charset=UTF-8")
	} else {
		bodyHeader.Set("Content-Type", "text/plain; charset=UTF-8")
	}
	part, err := writer.CreatePart(bodyHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create body part: %w", err)
	}
	if msg.HtmlBody != "" {
		part.Write([]byte(msg.HtmlBody))
	} else {
		part.Write([]byte(msg.TextBody))
	}

	for _, att := range msg.Attachments {
		attHeader := make(textproto.MIMEHeader)
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		attHeader.Set("Content-Type", contentType)
		attHeader.Set("Content-Transfer-Encoding", "base64")
		attHeader.Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%s", mime.QEncoding.Encode("UTF-8", att.Filename)))

		part, err := writer.CreatePart(attHeader)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment part: %w", err)
		}
		part.Write([]byte(encodeBase64WithLineBreaks(att.Content)))
	}

	writer.Close()
	return buf.Bytes(), nil
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
