package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"NewsWatch/internal/domain"
)

// metadata accumulates title/author/date across sources; earlier sources win.
type metadata struct {
	title     string
	author    string
	published *time.Time
}

func newMetadata(cand domain.CandidateURL) metadata {
	m := metadata{title: cleanTitle(cand.TitleHint)}
	if cand.DateHint != nil {
		t := cand.DateHint.UTC()
		m.published = &t
	}
	return m
}

func (m *metadata) merge(other metadata) {
	if m.title == "" {
		m.title = other.title
	}
	if m.author == "" {
		m.author = other.author
	}
	if m.published == nil {
		m.published = other.published
	}
}

func (m metadata) complete() bool {
	return m.title != "" && m.author != "" && m.published != nil
}

func (m metadata) hasAny() bool {
	return m.title != "" || m.author != "" || m.published != nil
}

// readabilityPass runs the primary boilerplate-removal extraction and returns
// its text plus any metadata it recovered.
func readabilityPass(html string, pageURL *url.URL) (string, metadata) {
	if pageURL == nil {
		pageURL = &url.URL{}
	}
	art, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return "", metadata{}
	}

	md := metadata{
		title:  cleanTitle(art.Title),
		author: cleanAuthor(art.Byline),
	}
	if art.PublishedTime != nil {
		t := art.PublishedTime.UTC()
		md.published = &t
	}
	return cleanText(art.TextContent), md
}

// Meta-tag keys probed for publish dates, in priority order.
var dateMetaKeys = []string{
	"article:published_time",
	"article:modified_time",
	"og:updated_time",
	"publish_date",
	"published_time",
	"date",
	"datePublished",
	"dateModified",
	"parsely-pub-date",
}

var authorMetaKeys = []string{
	"author",
	"article:author",
	"parsely-author",
	"byline",
	"dc.creator",
}

func metaTagMetadata(doc *goquery.Document) metadata {
	tags := map[string]string{}
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		key, _ := sel.Attr("property")
		if key == "" {
			key, _ = sel.Attr("name")
		}
		value, _ := sel.Attr("content")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key != "" && value != "" {
			if _, ok := tags[key]; !ok {
				tags[key] = value
			}
		}
	})

	md := metadata{title: cleanTitle(tags["og:title"])}
	if md.title == "" {
		md.title = cleanTitle(doc.Find("title").First().Text())
	}
	for _, key := range authorMetaKeys {
		if v, ok := tags[key]; ok {
			md.author = cleanAuthor(v)
			break
		}
	}
	for _, key := range dateMetaKeys {
		if v, ok := tags[key]; ok {
			if t := parseDate(v); t != nil {
				md.published = t
				break
			}
		}
	}
	return md
}

func jsonldMetadata(objs []map[string]any) metadata {
	var md metadata
	for _, obj := range objs {
		if md.title == "" {
			if v, ok := obj["headline"].(string); ok {
				md.title = cleanTitle(v)
			}
		}
		if md.author == "" {
			md.author = cleanAuthor(jsonldAuthor(obj["author"]))
		}
		if md.published == nil {
			for _, key := range []string{"datePublished", "dateModified", "uploadDate", "dateCreated"} {
				if v, ok := obj[key].(string); ok && strings.TrimSpace(v) != "" {
					if t := parseDate(v); t != nil {
						md.published = t
						break
					}
				}
			}
		}
	}
	return md
}

func jsonldAuthor(v any) string {
	switch author := v.(type) {
	case map[string]any:
		if name, ok := author["name"].(string); ok {
			return name
		}
	case []any:
		for _, item := range author {
			if name := jsonldAuthor(item); name != "" {
				return name
			}
		}
	case string:
		return author
	}
	return ""
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}

var (
	wsRe          = regexp.MustCompile(`\s+`)
	titleSuffixRe = regexp.MustCompile(`\s*[\|\-–—]\s*[^|\-–—]{2,60}$`)
	bylinePrefix  = regexp.MustCompile(`(?i)^(by|written by)\s+`)
)

func cleanText(s string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(s, " "))
}

// cleanTitle drops the trailing "| Site Name" decoration publishers append.
func cleanTitle(s string) string {
	return strings.TrimSpace(titleSuffixRe.ReplaceAllString(cleanText(s), ""))
}

func cleanAuthor(s string) string {
	return strings.TrimSpace(bylinePrefix.ReplaceAllString(cleanText(s), ""))
}
