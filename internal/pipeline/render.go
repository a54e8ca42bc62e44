// Package pipeline wires the ingestion flows: rendering deposited emails to
// self-contained HTML, extracting their attachments, and mailing generated
// document summaries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shineum/mail-digest/internal/normalizer"
	"github.com/shineum/mail-digest/internal/parser"
	"github.com/shineum/mail-digest/internal/storage"
)

// Renderer converts a deposited raw email into one self-contained HTML
// document stored in the target bucket under <sender>/<timestamp>.html.
type Renderer struct {
	store        *storage.Store
	targetBucket string
	now          func() time.Time
}

// NewRenderer creates a Renderer writing to the given target bucket.
func NewRenderer(store *storage.Store, targetBucket string) *Renderer {
	return &Renderer{
		store:        store,
		targetBucket: targetBucket,
		now:          time.Now,
	}
}

// Process fetches the raw message at bucket/key, normalizes it, and stores
// the resulting HTML document. A message with no renderable body is logged
// and skipped without error; a message that cannot be parsed at all is an
// error the caller may report.
func (r *Renderer) Process(ctx context.Context, bucket, key string) error {
	raw, err := r.store.Fetch(ctx, bucket, key)
	if err != nil {
		return err
	}

	msg, err := parser.Parse(raw)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", key, err)
	}

	sender := parser.ExtractAddress(msg.From)
	slog.Info("processing email", "key", key, "from", sender)

	doc, err := normalizer.Normalize(msg)
	if errors.Is(err, normalizer.ErrNoRenderableBody) {
		slog.Warn("no renderable body found in email", "key", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to normalize %s: %w", key, err)
	}

	path := storage.HTMLPath(sender, r.now())
	if err := r.store.Put(ctx, r.targetBucket, path, []byte(doc), "text/html; charset=utf-8"); err != nil {
		return err
	}

	slog.Info("html body processed and saved", "path", path)
	return nil
}
