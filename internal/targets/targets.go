// Package targets turns user input into the ordered list of article URLs to
// scrape: normalized, de-duplicated and capped.
package targets

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNoTargets is returned when nothing usable remains after selection.
var ErrNoTargets = errors.New("no target urls")

// Target is one article URL with an optional label from the source list.
type Target struct {
	URL   string `json:"url"`
	Label string `json:"label,omitempty"`
}

// trackingParams are dropped during normalization. Medium appends source=
// to nearly every internal link.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id",
	"gclid", "fbclid", "source",
}

// Normalize canonicalizes URLs, trims tracking parameters and removes
// duplicates, keeping the first occurrence. Unparseable and non-HTTP entries
// are dropped.
func Normalize(in []Target) []Target {
	seen := map[string]struct{}{}
	out := make([]Target, 0, len(in))
	for _, t := range in {
		key, ok := Canonical(t.URL)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		t.URL = key
		out = append(out, t)
	}
	return out
}

// Canonical returns the normalized form of raw and whether it is a usable
// http(s) URL.
func Canonical(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) || (u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Hostname()
	}
	q := u.Query()
	for _, p := range trackingParams {
		q.Del(p)
	}
	u.RawQuery = q.Encode()
	return u.String(), true
}

// FromURLs wraps plain URL strings.
func FromURLs(urls []string) []Target {
	out := make([]Target, 0, len(urls))
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		out = append(out, Target{URL: strings.TrimSpace(u)})
	}
	return out
}
