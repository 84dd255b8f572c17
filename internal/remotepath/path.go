package remotepath

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Split breaks a slash-separated remote path into NFC-normalized segments.
// Empty segments, including leading and trailing slashes, are dropped.
func Split(p string) []string {
	parts := strings.Split(p, "/")
	out := make([]string, 0, len(parts))

	for _, s := range parts {
		if s == "" {
			continue
		}

		out = append(out, norm.NFC.String(s))
	}

	return out
}

// Join renders segments as a slash-separated path for messages.
func Join(segments []string) string {
	return strings.Join(segments, "/")
}

// normalize returns NFC copies of segments. Empty segments are kept so the
// caller sees them as lookups for an empty name.
func normalize(segments []string) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = norm.NFC.String(s)
	}

	return out
}

// sameName compares two names after NFC normalization.
func sameName(a, b string) bool {
	return norm.NFC.String(a) == norm.NFC.String(b)
}
