package platform

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultScheme is prepended to URLs given without one
const DefaultScheme = "https://"

var (
	trackingParams = []*regexp.Regexp{
		regexp.MustCompile(`[?&]utm_[^&#]*`),
		regexp.MustCompile(`(?i)[?&]fbclid=[^&#]*`),
		regexp.MustCompile(`(?i)[?&]gclid=[^&#]*`),
	}
	httpScheme = regexp.MustCompile(`(?i)^https?://`)
	anyScheme  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
)

// Preprocess strips tracking parameters, percent-decodes and prepends a
// default scheme. Preprocess(Preprocess(u)) == Preprocess(u).
func Preprocess(raw string) string {
	current := strings.TrimSpace(raw)
	if current == "" {
		return raw
	}
	// Every pass after the first only shortens the string, so this terminates.
	for {
		next := preprocessOnce(current)
		if next == current {
			break
		}
		current = next
	}
	return current
}

func preprocessOnce(s string) string {
	s = stripTracking(s)
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	s = EnsureScheme(strings.TrimSpace(s))
	return strings.TrimSpace(s)
}

// stripTracking removes tracking query parameters. When the first parameter
// is removed the next one takes over the '?' separator.
func stripTracking(s string) string {
	for _, re := range trackingParams {
		for {
			loc := re.FindStringIndex(s)
			if loc == nil {
				break
			}
			lead := s[loc[0]]
			rest := s[loc[1]:]
			if lead == '?' && strings.HasPrefix(rest, "&") {
				rest = "?" + rest[1:]
			}
			s = s[:loc[0]] + rest
		}
	}
	return s
}

// EnsureScheme prepends https:// unless the URL already starts with http(s)://
func EnsureScheme(s string) string {
	if httpScheme.MatchString(s) {
		return s
	}
	return DefaultScheme + s
}

// HasScheme reports whether s starts with any URL scheme
func HasScheme(s string) bool {
	return anyScheme.MatchString(s)
}
