package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsWatch/internal/domain"
)

// discoverFeedDirectory probes a page for auto-discoverable feed links and
// recurses into each discovered feed with the feed strategy.
func (e *Engine) discoverFeedDirectory(ctx context.Context, src domain.Source, ep domain.Endpoint, base *url.URL) ([]domain.CandidateURL, error) {
	body, err := e.fetch(ctx, ep.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch directory: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse directory page: %w", err)
	}

	feeds := feedLinks(doc, base)
	if len(feeds) == 0 {
		return nil, fmt.Errorf("no feed links discovered")
	}

	var (
		out     []domain.CandidateURL
		parsed  int
		lastErr error
	)
	for _, feedURL := range feeds {
		if len(out) >= e.endpointLimit {
			break
		}
		cands, err := e.discoverFeed(ctx, src, ep, feedURL)
		if err != nil {
			lastErr = err
			continue
		}
		parsed++
		for _, c := range cands {
			if len(out) >= e.endpointLimit {
				break
			}
			out = append(out, c)
		}
	}

	if parsed == 0 {
		return nil, fmt.Errorf("no discovered feed parsed: %w", lastErr)
	}
	return out, nil
}

// feedLinks collects candidate feed addresses from standard link-tag
// conventions and feed-looking anchors, same-domain links first.
func feedLinks(doc *goquery.Document, base *url.URL) []string {
	seen := map[string]struct{}{}
	var links []string

	push := func(href string) {
		abs := resolveRef(base, href)
		if !strings.HasPrefix(abs, "http") {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	}

	doc.Find(`link[rel="alternate"]`).Each(func(_ int, sel *goquery.Selection) {
		typ, _ := sel.Attr("type")
		typ = strings.ToLower(typ)
		if strings.Contains(typ, "rss") || strings.Contains(typ, "atom") || strings.Contains(typ, "xml") {
			if href, ok := sel.Attr("href"); ok {
				push(href)
			}
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		low := strings.ToLower(href)
		if strings.Contains(low, "rss") || strings.Contains(low, "feed") ||
			strings.Contains(low, "atom") || strings.HasSuffix(low, ".xml") {
			push(href)
		}
	})

	// Same-domain feeds are far more likely to be the publisher's own.
	sort.SliceStable(links, func(i, j int) bool {
		return sameDomain(base, links[i]) && !sameDomain(base, links[j])
	})

	if len(links) > maxFeedsPerDirectory {
		links = links[:maxFeedsPerDirectory]
	}
	return links
}
