// Package extract turns a candidate URL into an Article through an ordered
// cascade of body-extraction strategies that degrades gracefully as page
// structure varies.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"NewsWatch/internal/domain"
	"NewsWatch/internal/ports"
)

// Status describes the confidence of one extraction.
type Status string

const (
	// StatusSuccess: body above threshold and all metadata fields present.
	StatusSuccess Status = "success"
	// StatusPartial: body above threshold, one or more metadata fields absent.
	StatusPartial Status = "partial"
	// StatusFailed: every strategy fell below threshold; the article is kept
	// with an empty body for audit.
	StatusFailed Status = "failed"
)

// Strategy names, in cascade order.
const (
	StrategyReadability = "readability"
	StrategyJSONLD      = "jsonld"
	StrategyPageData    = "pagedata"
	StrategySemantic    = "semantic"
	StrategyParagraphs  = "paragraphs"
)

// Result is the outcome of extracting one candidate.
type Result struct {
	Status  Status
	Article domain.Article
}

// Extractor runs the cascade. It holds no per-call state; calls are safe to
// run concurrently.
type Extractor struct {
	fetcher ports.Fetcher
	minBody int
	logger  *slog.Logger
}

// NewExtractor wires the transport collaborator and the minimum-quality bar.
func NewExtractor(fetcher ports.Fetcher, minBodyChars int, logger *slog.Logger) *Extractor {
	if minBodyChars <= 0 {
		minBodyChars = 200
	}
	return &Extractor{fetcher: fetcher, minBody: minBodyChars, logger: logger}
}

// Extract fetches the candidate's page and runs the cascade. Transport
// failures produce a failed result with provenance preserved, never an error
// that would abort the run.
func (e *Extractor) Extract(ctx context.Context, cand domain.CandidateURL) Result {
	res, err := e.fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		return e.failed(cand, fmt.Sprintf("fetch failed: %v", err))
	}
	return e.ExtractFromHTML(cand, string(res.Body))
}

// ExtractFromHTML runs the cascade over pre-fetched page markup.
func (e *Extractor) ExtractFromHTML(cand domain.CandidateURL, html string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return e.failed(cand, fmt.Sprintf("parse page: %v", err))
	}

	pageURL, _ := url.Parse(cand.URL)

	var notes []string
	meta := newMetadata(cand)

	body, strategy := "", ""
	if text, md := readabilityPass(html, pageURL); e.aboveThreshold(text) {
		body, strategy = text, StrategyReadability
		meta.merge(md)
	} else if md.hasAny() {
		// Keep whatever metadata readability recovered even when its body lost.
		meta.merge(md)
	}

	jsonld := jsonldObjects(doc)
	if body == "" {
		if text := jsonldBody(jsonld); e.aboveThreshold(text) {
			body, strategy = text, StrategyJSONLD
			notes = append(notes, "body from JSON-LD articleBody")
		}
	}
	if body == "" {
		if text := pageDataBody(doc); e.aboveThreshold(text) {
			body, strategy = text, StrategyPageData
			notes = append(notes, "body from embedded page data")
		}
	}
	if body == "" {
		if text := semanticBody(doc); e.aboveThreshold(text) {
			body, strategy = text, StrategySemantic
			notes = append(notes, "body from semantic container")
		}
	}
	if body == "" {
		if text := paragraphBody(doc); e.aboveThreshold(text) {
			body, strategy = text, StrategyParagraphs
			notes = append(notes, "body from paragraph concatenation")
		}
	}

	// Metadata is resolved independently of which strategy won the body.
	meta.merge(metaTagMetadata(doc))
	meta.merge(jsonldMetadata(jsonld))

	art := e.article(cand, meta)
	art.Body = body
	art.ContentLength = utf8.RuneCountInString(body)
	art.Strategy = strategy
	art.ExtractionNotes = notes

	status := StatusSuccess
	if body == "" {
		status = StatusFailed
		art.ExtractionNotes = append(art.ExtractionNotes, "no strategy met the minimum body length")
	} else if !meta.complete() {
		status = StatusPartial
	}

	e.debug("extracted", "url", cand.URL, "status", string(status), "strategy", strategy, "chars", art.ContentLength)
	return Result{Status: status, Article: art}
}

func (e *Extractor) aboveThreshold(text string) bool {
	return utf8.RuneCountInString(text) >= e.minBody
}

func (e *Extractor) failed(cand domain.CandidateURL, note string) Result {
	meta := newMetadata(cand)
	art := e.article(cand, meta)
	art.ExtractionNotes = []string{note}
	return Result{Status: StatusFailed, Article: art}
}

func (e *Extractor) article(cand domain.CandidateURL, meta metadata) domain.Article {
	now := time.Now().UTC()
	title := meta.title
	if title == "" {
		title = cand.URL
	}
	return domain.Article{
		ID:          domain.ArticleID(cand.SourceSlug, cand.Normalized, meta.published),
		Country:     cand.Country,
		SourceName:  cand.SourceName,
		SourceSlug:  cand.SourceSlug,
		URL:         cand.Normalized,
		Title:       title,
		Author:      meta.author,
		PublishedAt: meta.published,
		FetchedAt:   &now,
	}
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
