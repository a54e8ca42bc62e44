package normalizer

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// utf8BOM is the UTF-8 byte order mark.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// attempt is one candidate decoding. It reports false when the bytes are not
// valid in its character encoding.
type attempt struct {
	name   string
	decode func([]byte) (string, bool)
}

// attempts is the ordered fallback chain: general/modern encodings first,
// regional/legacy last. Latin-1 accepts any byte sequence, so the chain as a
// whole cannot fail; the entries after it exist to keep the documented
// priority order intact.
var attempts = []attempt{
	{"utf-8", decodeUTF8},
	{"utf-8-sig", decodeUTF8BOM},
	{"windows-1252", decodeCharmap(charmap.Windows1252)},
	{"latin-1", decodeCharmap(charmap.ISO8859_1)},
	{"iso-8859-1", decodeCharmap(charmap.ISO8859_1)},
	{"iso-8859-15", decodeCharmap(charmap.ISO8859_15)},
	{"ascii", decodeASCII},
}

// Decode converts a byte payload to a string by trying each candidate
// character encoding in priority order and returning the first clean decode.
// It is total: when every attempt is rejected it falls back to lossy UTF-8
// with replacement characters, and as a last resort to Latin-1, which can
// decode any byte sequence. Decode never fails.
func Decode(b []byte) string {
	for _, a := range attempts {
		if s, ok := a.decode(b); ok {
			return s
		}
	}
	// Unreachable in practice: Latin-1 above accepts any byte sequence.
	// Kept so the function stays total even if the chain changes.
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

func decodeUTF8(b []byte) (string, bool) {
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func decodeUTF8BOM(b []byte) (string, bool) {
	if !bytes.HasPrefix(b, utf8BOM) || !utf8.Valid(b) {
		return "", false
	}
	s, err := unicode.UTF8BOM.NewDecoder().Bytes(b)
	if err != nil {
		return "", false
	}
	return string(s), true
}

// decodeCharmap builds an attempt for a single-byte character map. A byte
// with no mapping in the table decodes to utf8.RuneError, which marks the
// attempt as failed; maps that define all 256 bytes never fail.
func decodeCharmap(cm *charmap.Charmap) func([]byte) (string, bool) {
	return func(b []byte) (string, bool) {
		var sb strings.Builder
		sb.Grow(len(b))
		for _, c := range b {
			r := cm.DecodeByte(c)
			if r == utf8.RuneError {
				return "", false
			}
			sb.WriteRune(r)
		}
		return sb.String(), true
	}
}

func decodeASCII(b []byte) (string, bool) {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return "", false
		}
	}
	return string(b), true
}
