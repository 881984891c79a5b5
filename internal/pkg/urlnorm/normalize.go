package urlnorm

import (
	"fmt"
	"net/url"
	"strings"
)

// trackingParams are stripped during normalization so that shared links with
// different campaign tags dedupe to the same tool
var trackingParams = []string{
	// Google Analytics
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_content",
	"utm_term",
	// Platform-specific tracking
	"si",     // Spotify/YouTube share ID
	"fbclid", // Facebook click ID
	"gclid",  // Google click ID
	"ref",    // Generic referrer (Product Hunt, newsletters)
	"source",
	"msclkid", // Microsoft click ID
	"igshid",  // Instagram share ID
}

// Validate checks that rawURL is an absolute http or https URL with a host
func Validate(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("empty URL")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("invalid URL: scheme must be http or https")
	}

	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid URL: no host found")
	}

	return u, nil
}

// NormalizeURL creates a canonical form of a URL for storage and deduplication.
// It handles:
// - Repairing query strings that use '?' as a separator
// - Lowercasing the scheme and domain
// - Removing www. prefix
// - Removing tracking parameters (utm_*, si, fbclid, ref, source)
// - Dropping the fragment and a lone trailing slash
func NormalizeURL(rawURL string) (string, error) {
	u, err := Validate(fixMalformedQueryString(strings.TrimSpace(rawURL)))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Fragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for _, param := range trackingParams {
			q.Del(param)
		}
		u.RawQuery = q.Encode()
	}

	if u.Path == "/" {
		u.Path = ""
	}

	return u.String(), nil
}

// Hostname returns the lowercased host of rawURL without its port, or ""
// when the URL cannot be parsed
func Hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// fixMalformedQueryString turns "?a=1?b=2" into "?a=1&b=2". Links pasted from
// chat clients frequently carry a second '?' instead of '&'.
func fixMalformedQueryString(rawURL string) string {
	idx := strings.Index(rawURL, "?")
	if idx < 0 {
		return rawURL
	}

	head, rest := rawURL[:idx+1], rawURL[idx+1:]
	fragment := ""
	if hash := strings.Index(rest, "#"); hash >= 0 {
		rest, fragment = rest[:hash], rest[hash:]
	}

	return head + strings.ReplaceAll(rest, "?", "&") + fragment
}

// Clean validates rawURL and returns it as submitted, apart from surrounding
// whitespace and a repaired query string. This is the address pages are
// fetched from; NormalizeURL gives the key used to spot duplicates.
func Clean(rawURL string) (string, error) {
	cleaned := fixMalformedQueryString(strings.TrimSpace(rawURL))
	if _, err := Validate(cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}
