package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shineum/mail-digest/internal/parser"
	"github.com/shineum/mail-digest/internal/storage"
)

// DefaultAllowedExtensions lists the document formats the pipelines accept.
// It matches the set of formats the summarization model can consume.
var DefaultAllowedExtensions = []string{
	"docx", "csv", "html", "txt", "pdf", "md", "doc", "xlsx", "xls",
}

// Extractor copies the allowed attachments of a deposited email into the
// target bucket under <sender>/<date>.<ext>.
type Extractor struct {
	store        *storage.Store
	targetBucket string
	allowed      map[string]bool
	now          func() time.Time
}

// NewExtractor creates an Extractor keeping only the given file extensions.
func NewExtractor(store *storage.Store, targetBucket string, allowedExtensions []string) *Extractor {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[ext] = true
	}
	return &Extractor{
		store:        store,
		targetBucket: targetBucket,
		allowed:      allowed,
		now:          time.Now,
	}
}

// Process fetches the raw message at bucket/key and stores every attachment
// whose extension is allowed. When a message yields more than one valid
// attachment, the object keys carry a 1-based index suffix.
func (e *Extractor) Process(ctx context.Context, bucket, key string) error {
	raw, err := e.store.Fetch(ctx, bucket, key)
	if err != nil {
		return err
	}

	msg, err := parser.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", key, err)
	}

	sender := parser.ExtractAddress(msg.From)

	type attachment struct {
		filename  string
		extension string
		mediaType string
		payload   []byte
	}

	var all, valid []attachment
	for _, part := range msg.Leaves() {
		if part.Filename == "" {
			continue
		}
		att := attachment{
			filename:  part.Filename,
			extension: storage.FileExtension(part.Filename),
			mediaType: part.MediaType,
			payload:   part.Payload,
		}
		all = append(all, att)
		if e.allowed[att.extension] {
			valid = append(valid, att)
		}
	}

	slog.Info("attachments found", "key", key, "total", len(all), "valid", len(valid))
	for _, att := range all {
		slog.Debug("attachment", "filename", att.filename, "extension", att.extension)
	}

	now := e.now()
	for i, att := range valid {
		path := storage.AttachmentPath(sender, now, att.extension, i, len(valid))
		if err := e.store.Put(ctx, e.targetBucket, path, att.payload, att.mediaType); err != nil {
			slog.Error("failed to store attachment", "filename", att.filename, "error", err)
			continue
		}
		slog.Info("attachment processed", "path", path)
	}

	return nil
}
