package discovery

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// Tracking parameters stripped during normalization so the same article
// reached through different campaigns dedupes to one candidate.
var trackingParams = map[string]struct{}{
	"fbclid": {}, "gclid": {}, "igshid": {}, "mc_cid": {}, "mc_eid": {}, "ref": {},
}

func isTrackingParam(name string) bool {
	if strings.HasPrefix(strings.ToLower(name), "utm_") {
		return true
	}
	_, ok := trackingParams[strings.ToLower(name)]
	return ok
}

// Normalize canonicalizes an article address: lowercased scheme and host,
// default port and fragment removed, tracking parameters stripped and the
// remaining query sorted.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	u.Host = host

	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}

	q := u.Query()
	for name := range q {
		if isTrackingParam(name) {
			q.Del(name)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

var articlePathRe = regexp.MustCompile(`(?i)(` +
	`/\d{4}/\d{2}/\d{2}/` +
	`|/news/|/article|/story|/stories` +
	`|/latest/|/detail/|/content/|/post/|/posts/` +
	`|/world/|/pakistan/|/international/|/business/|/politics/|/sports/|/entertainment/` +
	`|/amp/|/amp$` +
	`|/\d{5,}([-/]|$)` +
	`)`)

var badURLParts = []string{
	"/tag/", "/tags/", "/topics/", "/topic/", "/category/", "/categories/",
	"/author/", "/authors/",
	"/privacy", "/terms", "/contact", "/about",
	"/login", "/signin", "/signup", "/register",
	"/epaper", "/e-paper",
	"/video/", "/videos/", "/watch/", "/player/",
	"javascript:", "mailto:",
}

// IsLikelyArticleURL applies path heuristics that separate article pages from
// section indexes, tag pages and chrome links.
func IsLikelyArticleURL(raw string) bool {
	if !strings.HasPrefix(raw, "http") {
		return false
	}
	low := strings.ToLower(raw)
	for _, part := range badURLParts {
		if strings.Contains(low, part) {
			return false
		}
	}
	return articlePathRe.MatchString(raw)
}

// Deduper enforces the run-wide uniqueness invariant on normalized URLs.
// First discovery wins; later duplicates are dropped silently.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeduper returns an empty run-scoped deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: map[string]struct{}{}}
}

// Add records a normalized URL and reports whether it was first seen here.
func (d *Deduper) Add(normalized string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[normalized]; ok {
		return false
	}
	d.seen[normalized] = struct{}{}
	return true
}

// Len reports how many unique URLs have been observed.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

func resolveRef(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func sameDomain(base *url.URL, raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Host == "" {
		return true
	}
	return strings.EqualFold(u.Host, base.Host)
}
