package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/shineum/mail-digest/internal/email"
	"github.com/shineum/mail-digest/internal/provider"
	"github.com/shineum/mail-digest/internal/storage"
	"github.com/shineum/mail-digest/internal/summarizer"
)

// digestSubject is the subject line of every digest email.
const digestSubject = "Processed Document Summary"

// Digester summarizes deposited documents with a text model and delivers the
// summary by email with the original document attached. Documents in a
// format outside the allowed list produce a rejection email instead.
type Digester struct {
	store      *storage.Store
	summarizer *summarizer.Summarizer
	mailer     provider.Provider
	recipient  string
	cc         string
	allowed    []string
}

// DigesterConfig holds the collaborators and addressing for a Digester.
type DigesterConfig struct {
	Store             *storage.Store
	Summarizer        *summarizer.Summarizer
	Mailer            provider.Provider
	Recipient         string
	CC                string
	AllowedExtensions []string
}

// NewDigester creates a Digester.
func NewDigester(cfg DigesterConfig) *Digester {
	allowed := cfg.AllowedExtensions
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	return &Digester{
		store:      cfg.Store,
		summarizer: cfg.Summarizer,
		mailer:     cfg.Mailer,
		recipient:  cfg.Recipient,
		cc:         cfg.CC,
		allowed:    allowed,
	}
}

// Process summarizes the document at bucket/key and mails the result.
// An unsupported extension is a reportable condition, not an error: the
// recipient gets a rejection email naming the file and the permitted
// formats, and the message is considered handled.
func (d *Digester) Process(ctx context.Context, bucket, key string) error {
	extension := storage.FileExtension(key)
	slog.Info("processing document", "bucket", bucket, "key", key, "extension", extension)

	if !d.extensionAllowed(extension) {
		slog.Warn("file type not allowed", "key", key, "extension", extension)
		return d.sendMail(ctx, d.rejectionBody(key, extension), nil)
	}

	doc, err := d.store.Fetch(ctx, bucket, key)
	if err != nil {
		return err
	}

	slog.Info("calling model for summary", "key", key)
	summary, err := d.summarizer.Summarize(ctx, "Summary", extension, doc)
	if err != nil {
		return fmt.Errorf("failed to summarize %s: %w", key, err)
	}
	slog.Info("document summary generated", "key", key)

	attachment := &email.Attachment{
		Filename:    path.Base(key),
		ContentType: mime.TypeByExtension("." + extension),
		Content:     doc,
	}
	return d.sendMail(ctx, d.successBody(summary), attachment)
}

func (d *Digester) extensionAllowed(extension string) bool {
	for _, ext := range d.allowed {
		if ext == extension {
			return true
		}
	}
	return false
}

func (d *Digester) sendMail(ctx context.Context, body string, attachment *email.Attachment) error {
	msg := &email.Email{
		To:       []string{d.recipient},
		Subject:  digestSubject,
		TextBody: body,
	}
	if d.cc != "" {
		msg.Cc = []string{d.cc}
	}
	if attachment != nil {
		msg.Attachments = []email.Attachment{*attachment}
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send digest email: %w", err)
	}
	slog.Info("digest email sent", "to", d.recipient)
	return nil
}

// successBody formats the email body carrying a generated summary.
func (d *Digester) successBody(summary string) string {
	return fmt.Sprintf(`Dear team member:

Below is the generated summary of the document:

%s

The original document is attached for reference.

Kind regards,
The mail-digest team`, summary)
}

// rejectionBody formats the email body for a document in an unsupported format.
func (d *Digester) rejectionBody(key, extension string) string {
	return fmt.Sprintf(`We are sorry, but the file you tried to process is not in a permitted format.

Permitted file formats: %s

Submitted file: %s
Detected extension: %s

Please try again with a file in one of the permitted formats.

Kind regards,
The mail-digest team`, strings.Join(d.allowed, ", "), key, extension)
}
