package storage

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Timestamp layouts matching the object naming scheme of the target buckets.
const (
	htmlTimestampLayout       = "2006-Jan-02 15:04:05"
	attachmentTimestampLayout = "2006-Jan-02"
)

// DecodeKey reverses the URL encoding S3 applies to object keys in event
// notifications, including "+" for spaces. A key that fails to decode is
// returned unchanged.
func DecodeKey(key string) string {
	decoded, err := url.QueryUnescape(key)
	if err != nil {
		return key
	}
	return decoded
}

// HTMLPath builds the object key for a rendered message body:
// <sender>/<timestamp>.html.
func HTMLPath(sender string, now time.Time) string {
	return fmt.Sprintf("%s/%s.html", sender, now.Format(htmlTimestampLayout))
}

// AttachmentPath builds the object key for an extracted attachment:
// <sender>/<date>.<ext>, with a 1-based _<n> suffix when the message
// produced more than one attachment.
func AttachmentPath(sender string, now time.Time, ext string, index, total int) string {
	date := now.Format(attachmentTimestampLayout)
	if total > 1 {
		return fmt.Sprintf("%s/%s_%d.%s", sender, date, index+1, ext)
	}
	return fmt.Sprintf("%s/%s.%s", sender, date, ext)
}

// FileExtension returns the lowercase extension of a filename without the
// dot, or "" when the filename has none.
func FileExtension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 || i == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}
