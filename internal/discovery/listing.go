package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"NewsWatch/internal/domain"
)

// discoverListing extracts article-looking anchors from a section page and
// emits one hint-free candidate per matching anchor.
func (e *Engine) discoverListing(ctx context.Context, src domain.Source, ep domain.Endpoint, base *url.URL) ([]domain.CandidateURL, error) {
	body, err := e.fetch(ctx, ep.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	seen := map[string]struct{}{}
	var out []domain.CandidateURL

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(out) >= e.endpointLimit {
			return false
		}
		href, _ := sel.Attr("href")
		abs := resolveRef(base, href)
		if !IsLikelyArticleURL(abs) {
			return true
		}
		if _, ok := seen[abs]; ok {
			return true
		}
		seen[abs] = struct{}{}
		if cand, ok := e.candidate(src, ep, abs); ok {
			out = append(out, cand)
		}
		return true
	})

	return out, nil
}
