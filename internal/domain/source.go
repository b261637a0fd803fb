package domain

import (
	"regexp"
	"strings"
)

// EndpointKind selects the discovery strategy used for an endpoint.
type EndpointKind string

const (
	KindFeed          EndpointKind = "feed"
	KindFeedDirectory EndpointKind = "feed-directory"
	KindHTMLListing   EndpointKind = "html-listing"
	KindSitemapIndex  EndpointKind = "sitemap-index"
)

// Valid reports whether the kind belongs to the closed strategy set.
func (k EndpointKind) Valid() bool {
	switch k {
	case KindFeed, KindFeedDirectory, KindHTMLListing, KindSitemapIndex:
		return true
	}
	return false
}

// Endpoint is one network address plus its discovery strategy tag.
type Endpoint struct {
	Kind    EndpointKind `json:"type"`
	URL     string       `json:"url"`
	Note    string       `json:"note,omitempty"`
	Enabled bool         `json:"enabled"`
}

// Source describes a monitored publisher. Immutable once loaded for a run.
type Source struct {
	Country   string     `json:"country"`
	Name      string     `json:"name"`
	Enabled   bool       `json:"enabled"`
	Endpoints []Endpoint `json:"endpoints"`
}

// Slug returns the filesystem-safe identifier for the source name.
func (s Source) Slug() string {
	return Slug(s.Name)
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9\-_]+`)

// Slug lowercases a name and strips everything unsafe for paths.
func Slug(name string) string {
	out := strings.ToLower(strings.TrimSpace(name))
	out = strings.Join(strings.Fields(out), "-")
	out = slugUnsafe.ReplaceAllString(out, "")
	if out == "" {
		return "source"
	}
	return out
}
