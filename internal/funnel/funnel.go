// Package funnel flags articles for relevance through a two-layer keyword
// gate: only articles that clear the national layer are examined by the
// threat layer, and only articles that clear both are shortlisted.
package funnel

import (
	"log/slog"

	"NewsWatch/internal/domain"
	"NewsWatch/internal/keywords"
)

// Funnel classifies extracted articles against the loaded keyword sets.
// It is stateless and safe for concurrent use.
type Funnel struct {
	sets   keywords.Sets
	logger *slog.Logger
}

// New builds a funnel over already-compiled keyword sets.
func New(sets keywords.Sets, logger *slog.Logger) *Funnel {
	return &Funnel{sets: sets, logger: logger}
}

// Classify returns a copy of the article with the relevance fields filled in.
// The input is never mutated, and classifying an already-classified copy
// produces the same flags again.
func (f *Funnel) Classify(art domain.Article) domain.Article {
	out := art
	haystack := art.Title + "\n" + art.Body

	out.NationalMatches = f.sets.National.Match(haystack)
	out.NationalRelevant = len(out.NationalMatches) > 0

	out.ThreatMatches = nil
	out.ThreatRelevant = false
	if out.NationalRelevant {
		out.ThreatMatches = f.sets.Threat.Match(haystack)
		out.ThreatRelevant = len(out.ThreatMatches) > 0
	}
	out.Shortlisted = out.NationalRelevant && out.ThreatRelevant

	if f.logger != nil && out.Shortlisted {
		f.logger.Debug("article shortlisted",
			"id", out.ID,
			"national_hits", len(out.NationalMatches),
			"threat_hits", len(out.ThreatMatches))
	}
	return out
}
