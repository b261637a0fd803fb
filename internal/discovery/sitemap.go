package discovery

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"

	"NewsWatch/internal/domain"
)

type sitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapLoc `xml:"url"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// discoverSitemap resolves a sitemap index (or plain urlset) recursively and
// emits one hint-free candidate per article-looking leaf URL.
func (e *Engine) discoverSitemap(ctx context.Context, src domain.Source, ep domain.Endpoint, base *url.URL) ([]domain.CandidateURL, error) {
	body, err := e.fetch(ctx, ep.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}

	var out []domain.CandidateURL

	if bytes.Contains(body, []byte("<sitemapindex")) {
		var idx sitemapIndex
		if err := xml.Unmarshal(body, &idx); err != nil {
			return nil, fmt.Errorf("parse sitemap index: %w", err)
		}

		children := idx.Sitemaps
		if len(children) > maxChildSitemaps {
			children = children[:maxChildSitemaps]
		}
		for _, child := range children {
			if len(out) >= e.endpointLimit {
				break
			}
			childURL := resolveRef(base, child.Loc)
			if childURL == "" {
				continue
			}
			childBody, err := e.fetch(ctx, childURL)
			if err != nil {
				// A missing child sitemap is not fatal for the endpoint.
				e.debug("child sitemap failed", "url", childURL, "error", err)
				continue
			}
			out = e.appendLeafURLs(out, src, ep, base, childBody)
		}
		if len(out) == 0 && len(idx.Sitemaps) == 0 {
			return nil, fmt.Errorf("sitemap index has no child sitemaps")
		}
		return out, nil
	}

	out = e.appendLeafURLs(out, src, ep, base, body)
	if len(out) == 0 {
		// Distinguish a parse failure from a sitemap with no article URLs.
		var set urlSet
		if err := xml.Unmarshal(body, &set); err != nil {
			return nil, fmt.Errorf("parse urlset: %w", err)
		}
	}
	return out, nil
}

func (e *Engine) appendLeafURLs(out []domain.CandidateURL, src domain.Source, ep domain.Endpoint, base *url.URL, body []byte) []domain.CandidateURL {
	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return out
	}
	for _, entry := range set.URLs {
		if len(out) >= e.endpointLimit {
			break
		}
		leaf := resolveRef(base, entry.Loc)
		if !IsLikelyArticleURL(leaf) {
			continue
		}
		if cand, ok := e.candidate(src, ep, leaf); ok {
			out = append(out, cand)
		}
	}
	return out
}
