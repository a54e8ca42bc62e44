package storage

import (
	"testing"
	"time"
)

func TestDecodeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"plain", "inbox/message.eml", "inbox/message.eml"},
		{"plus for space", "inbox/weekly+report.eml", "inbox/weekly report.eml"},
		{"percent encoded", "inbox/informe%20t%C3%A9cnico.pdf", "inbox/informe técnico.pdf"},
		{"mixed", "jane%40example.com/2024-Jan-05+10%3A30%3A00.html", "jane@example.com/2024-Jan-05 10:30:00.html"},
		{"malformed escape left alone", "broken%2", "broken%2"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DecodeKey(tt.key); got != tt.want {
				t.Errorf("DecodeKey(%q): got %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestHTMLPath(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 7, 14, 5, 9, 0, time.UTC)
	got := HTMLPath("jane@example.com", now)
	want := "jane@example.com/2024-Mar-07 14:05:09.html"
	if got != want {
		t.Errorf("HTMLPath: got %q, want %q", got, want)
	}
}

func TestAttachmentPath(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 7, 14, 5, 9, 0, time.UTC)

	if got, want := AttachmentPath("jane@example.com", now, "pdf", 0, 1), "jane@example.com/2024-Mar-07.pdf"; got != want {
		t.Errorf("single attachment: got %q, want %q", got, want)
	}
	if got, want := AttachmentPath("jane@example.com", now, "pdf", 0, 3), "jane@example.com/2024-Mar-07_1.pdf"; got != want {
		t.Errorf("first of several: got %q, want %q", got, want)
	}
	if got, want := AttachmentPath("jane@example.com", now, "xlsx", 2, 3), "jane@example.com/2024-Mar-07_3.xlsx"; got != want {
		t.Errorf("third of several: got %q, want %q", got, want)
	}
}

func TestFileExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     string
	}{
		{"report.pdf", "pdf"},
		{"REPORT.PDF", "pdf"},
		{"archive.tar.gz", "gz"},
		{"no extension", ""},
		{"trailing.", ""},
		{"", ""},
		{"informe técnico.XLSX", "xlsx"},
	}

	for _, tt := range tests {
		if got := FileExtension(tt.filename); got != tt.want {
			t.Errorf("FileExtension(%q): got %q, want %q", tt.filename, got, tt.want)
		}
	}
}
