package extract

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// jsonldObjects parses every ld+json script block into flat objects,
// tolerating both single objects and arrays.
func jsonldObjects(doc *goquery.Document) []map[string]any {
	var objs []map[string]any
	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		typ, _ := sel.Attr("type")
		if !strings.Contains(strings.ToLower(typ), "ld+json") {
			return
		}
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var single map[string]any
		if err := json.Unmarshal([]byte(raw), &single); err == nil {
			objs = append(objs, single)
			return
		}
		var list []any
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			for _, item := range list {
				if obj, ok := item.(map[string]any); ok {
					objs = append(objs, obj)
				}
			}
		}
	})
	return objs
}

// jsonldBody returns the longest articleBody found in JSON-LD blocks.
func jsonldBody(objs []map[string]any) string {
	best := ""
	for _, obj := range objs {
		if v, ok := obj["articleBody"].(string); ok {
			text := textFromHTMLish(v)
			if utf8.RuneCountInString(text) > utf8.RuneCountInString(best) {
				best = text
			}
		}
	}
	return best
}

// Key names that frameworks use for article body fields inside hydration
// payloads, matched by suffix.
var pageDataBodyKeys = []string{
	"articlebody", "body", "content", "text", "description",
	"html", "longdescription", "story", "storybody", "maincontent",
}

// pageDataBody digs article text out of JSON payloads embedded for JS
// framework hydration (Next.js __NEXT_DATA__ and similar inline state).
func pageDataBody(doc *goquery.Document) string {
	var payloads []any

	if raw := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text()); raw != "" {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			payloads = append(payloads, v)
		}
	}

	// Other frameworks inline state as plain JSON script blocks.
	doc.Find(`script[type="application/json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			payloads = append(payloads, v)
		}
	})

	best := ""
	for _, payload := range payloads {
		for _, hit := range deepFindTextFields(payload, pageDataBodyKeys, 6) {
			if utf8.RuneCountInString(hit) > utf8.RuneCountInString(best) {
				best = hit
			}
		}
	}
	return best
}

// deepFindTextFields walks arbitrary JSON for likely body fields by key-name
// suffix, collecting cleaned strings up to maxHits.
func deepFindTextFields(v any, keys []string, maxHits int) []string {
	var hits []string
	seen := map[string]struct{}{}

	var walk func(x any)
	walk = func(x any) {
		if len(hits) >= maxHits {
			return
		}
		switch node := x.(type) {
		case map[string]any:
			for key, value := range node {
				if len(hits) >= maxHits {
					return
				}
				low := strings.ToLower(key)
				if keyMatches(low, keys) {
					switch field := value.(type) {
					case string:
						if utf8.RuneCountInString(field) >= 120 {
							push(&hits, seen, textFromHTMLish(field))
						}
					case []any:
						var parts []string
						for _, item := range field {
							if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
								parts = append(parts, textFromHTMLish(s))
							}
						}
						joined := cleanText(strings.Join(parts, " "))
						if utf8.RuneCountInString(joined) >= 200 {
							push(&hits, seen, joined)
						}
					}
				}
				walk(value)
			}
		case []any:
			for _, item := range node {
				if len(hits) >= maxHits {
					return
				}
				walk(item)
			}
		}
	}

	walk(v)
	return hits
}

func keyMatches(key string, keys []string) bool {
	for _, k := range keys {
		if key == k || strings.HasSuffix(key, k) {
			return true
		}
	}
	return false
}

func push(hits *[]string, seen map[string]struct{}, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if _, ok := seen[text]; ok {
		return
	}
	seen[text] = struct{}{}
	*hits = append(*hits, text)
}

// Selectors tried for the page's primary semantic content container.
var semanticSelectors = []string{
	"article",
	"div[itemprop='articleBody']",
	"div.article-body",
	"div.story-body",
	"div.story",
	"div#story",
	"div#article",
	"section.article",
	"main",
}

// semanticBody takes the text of the first matching semantic container.
func semanticBody(doc *goquery.Document) string {
	for _, sel := range semanticSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := cleanText(node.Text()); text != "" {
			return text
		}
	}
	return ""
}

// paragraphBody concatenates all substantial paragraph nodes, the last resort.
func paragraphBody(doc *goquery.Document) string {
	var parts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := cleanText(sel.Text())
		if utf8.RuneCountInString(text) >= 40 {
			parts = append(parts, text)
		}
	})
	return cleanText(strings.Join(parts, " "))
}

// textFromHTMLish strips tags when the value looks like HTML markup.
func textFromHTMLish(s string) string {
	if strings.Contains(s, "<") && strings.Contains(s, ">") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			return cleanText(doc.Text())
		}
	}
	return cleanText(s)
}
