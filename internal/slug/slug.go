// Package slug derives the identity key used for duplicate detection.
// Two titles that differ only in case, accents or punctuation map to the
// same key, so the same story picked up from different sources collapses
// to one identity.
package slug

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key fingerprints a title: lowercase, strip diacritics, drop everything
// that is not alphanumeric or a hyphen, collapse whitespace/underscores to
// single hyphens. Returns "" for titles with no usable characters; callers
// must treat an empty key as degenerate and drop the candidate.
func Key(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))

	folded, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	lastDash := false
	for _, r := range folded {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case r == '-' || r == '_' || unicode.IsSpace(r):
			if !lastDash && b.Len() > 0 {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}

// NormalizeURL strips the query string, fragment and any trailing slash so
// the same article fetched with tracking parameters keys identically.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimSuffix(raw, "/")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// Domain extracts the bare host of a URL, without the www prefix.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
