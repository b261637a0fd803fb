package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// CandidateURL is a discovered article address plus provenance and optional
// hint metadata taken from the discovery entry.
type CandidateURL struct {
	URL        string
	Normalized string
	Country    string
	SourceName string
	SourceSlug string
	Endpoint   string
	Strategy   EndpointKind
	TitleHint  string
	DateHint   *time.Time
}

// Article is the central pipeline entity. It is created by the extractor,
// flagged once by the relevance funnel, and never mutated after it is handed
// to the run store.
type Article struct {
	ID         string `json:"id"`
	Country    string `json:"country"`
	SourceName string `json:"source_name"`
	SourceSlug string `json:"source_slug"`
	URL        string `json:"url"`

	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at"`

	Body            string   `json:"content_text"`
	ContentLength   int      `json:"content_length"`
	Strategy        string   `json:"extraction_method"`
	ExtractionNotes []string `json:"extraction_notes,omitempty"`

	RunID     string     `json:"run_id,omitempty"`
	FetchedAt *time.Time `json:"fetched_at"`

	NationalMatches  []string `json:"kw_national_hits"`
	ThreatMatches    []string `json:"kw_threat_hits"`
	NationalRelevant bool     `json:"national_relevant"`
	ThreatRelevant   bool     `json:"threat_relevant"`
	Shortlisted      bool     `json:"shortlisted"`

	// Reserved scoring fields. Carried in the schema for forward
	// compatibility only; serialized as null until a scoring layer exists.
	TruthScore    *float64 `json:"truth_score"`
	ThreatScore   *float64 `json:"threat_score"`
	ThreatLevel   *string  `json:"threat_level"`
	ThreatFactors []string `json:"threat_factors"`
}

// ArticleID derives a stable content-hash identity from source slug, URL and
// the best-effort publish date.
func ArticleID(sourceSlug, url string, published *time.Time) string {
	key := sourceSlug + "|" + url + "|"
	if published != nil {
		key += published.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:24]
}

// RunSummary is the catalog record for one completed run.
type RunSummary struct {
	RunID             string
	CreatedAt         time.Time
	Discovered        int
	Fetched           int
	Shortlisted       int
	FailedExtractions int
	EndpointFailures  int
	Note              string
}
