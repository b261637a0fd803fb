package discovery

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"NewsWatch/internal/domain"
)

// discoverFeed parses a syndication feed; each entry yields one candidate
// with title and publish-date hints taken directly from the entry.
func (e *Engine) discoverFeed(ctx context.Context, src domain.Source, ep domain.Endpoint, feedURL string) ([]domain.CandidateURL, error) {
	body, err := e.fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	out := make([]domain.CandidateURL, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(out) >= e.endpointLimit {
			break
		}
		link := entryLink(item)
		if link == "" {
			continue
		}

		cand, ok := e.candidate(src, ep, link)
		if !ok {
			continue
		}
		cand.TitleHint = item.Title
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			cand.DateHint = &t
		} else if item.UpdatedParsed != nil {
			t := item.UpdatedParsed.UTC()
			cand.DateHint = &t
		}
		out = append(out, cand)
	}

	return out, nil
}

func entryLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	for _, l := range item.Links {
		if l != "" {
			return l
		}
	}
	// Some feeds only carry the permalink in the GUID.
	if len(item.GUID) > 4 && item.GUID[:4] == "http" {
		return item.GUID
	}
	return ""
}
