package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shineum/mail-digest/internal/storage"
)

const twoAttachmentEmail = "From: Carol <carol@example.com>\r\n" +
	"Subject: Documents\r\n" +
	"Content-Type: multipart/mixed; boundary=\"frontier\"\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Two documents attached.\r\n" +
	"--frontier\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
	"\r\n" +
	"%PDF-1.4 first\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/csv\r\n" +
	"Content-Disposition: attachment; filename=\"data.CSV\"\r\n" +
	"\r\n" +
	"a,b,c\r\n" +
	"--frontier--\r\n"

const mixedAttachmentEmail = "From: Carol <carol@example.com>\r\n" +
	"Subject: Mixed\r\n" +
	"Content-Type: multipart/mixed; boundary=\"frontier\"\r\n" +
	"\r\n" +
	"--frontier\r\n" +
	"Content-Type: application/x-msdownload\r\n" +
	"Content-Disposition: attachment; filename=\"setup.exe\"\r\n" +
	"\r\n" +
	"MZ fake\r\n" +
	"--frontier\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Disposition: attachment; filename=\"notes.txt\"\r\n" +
	"\r\n" +
	"some notes\r\n" +
	"--frontier--\r\n"

func TestExtractorProcess_MultipleAttachments(t *testing.T) {
	t.Parallel()

	mock := newMockObjectClient()
	mock.addObject("inbox", "docs.eml", []byte(twoAttachmentEmail))

	e := NewExtractor(storage.NewWithClient(mock), "attachments", DefaultAllowedExtensions)
	e.now = func() time.Time { return fixedNow }

	if err := e.Process(context.Background(), "inbox", "docs.eml"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.puts) != 2 {
		t.Fatalf("puts: got %d, want 2", len(mock.puts))
	}
	if want := "carol@example.com/2024-Mar-07_1.pdf"; mock.puts[0].key != want {
		t.Errorf("first key: got %q, want %q", mock.puts[0].key, want)
	}
	if want := "carol@example.com/2024-Mar-07_2.csv"; mock.puts[1].key != want {
		t.Errorf("second key: got %q, want %q", mock.puts[1].key, want)
	}
	if got := string(mock.puts[1].body); got != "a,b,c" {
		t.Errorf("csv body: got %q, want %q", got, "a,b,c")
	}
}

func TestExtractorProcess_SingleAttachmentNoIndex(t *testing.T) {
	t.Parallel()

	mock := newMockObjectClient()
	mock.addObject("inbox", "files-only.eml", []byte(attachmentOnlyEmail))

	e := NewExtractor(storage.NewWithClient(mock), "attachments", DefaultAllowedExtensions)
	e.now = func() time.Time { return fixedNow }

	if err := e.Process(context.Background(), "inbox", "files-only.eml"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.puts) != 1 {
		t.Fatalf("puts: got %d, want 1", len(mock.puts))
	}
	if want := "bob@example.com/2024-Mar-07.pdf"; mock.puts[0].key != want {
		t.Errorf("key: got %q, want %q", mock.puts[0].key, want)
	}
	if mock.puts[0].contentType != "application/pdf" {
		t.Errorf("content type: got %q, want %q", mock.puts[0].contentType, "application/pdf")
	}
}

func TestExtractorProcess_FiltersDisallowedExtensions(t *testing.T) {
	t.Parallel()

	mock := newMockObjectClient()
	mock.addObject("inbox", "mixed.eml", []byte(mixedAttachmentEmail))

	e := NewExtractor(storage.NewWithClient(mock), "attachments", DefaultAllowedExtensions)
	e.now = func() time.Time { return fixedNow }

	if err := e.Process(context.Background(), "inbox", "mixed.eml"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.puts) != 1 {
		t.Fatalf("puts: got %d, want 1", len(mock.puts))
	}
	if want := "carol@example.com/2024-Mar-07.txt"; mock.puts[0].key != want {
		t.Errorf("key: got %q, want %q", mock.puts[0].key, want)
	}
}

func TestExtractorProcess_NoAttachments(t *testing.T) {
	t.Parallel()

	mock := newMockObjectClient()
	mock.addObject("inbox", "plain.eml", []byte(htmlEmail))

	e := NewExtractor(storage.NewWithClient(mock), "attachments", DefaultAllowedExtensions)
	e.now = func() time.Time { return fixedNow }

	if err := e.Process(context.Background(), "inbox", "plain.eml"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.puts) != 0 {
		t.Errorf("puts: got %d, want 0", len(mock.puts))
	}
}
