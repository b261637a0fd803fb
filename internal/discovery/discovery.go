// Package discovery turns a source's endpoints into a deduplicated set of
// candidate article URLs. One bad endpoint never blocks the rest of a source.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"NewsWatch/internal/domain"
	"NewsWatch/internal/ports"
)

const (
	maxFeedsPerDirectory = 15
	maxChildSitemaps     = 30
)

// EndpointFailure records one endpoint-level discovery error.
type EndpointFailure struct {
	SourceName string
	Endpoint   string
	Kind       domain.EndpointKind
	Err        error
}

func (f EndpointFailure) Error() string {
	return fmt.Sprintf("%s %s (%s): %v", f.SourceName, f.Endpoint, string(f.Kind), f.Err)
}

// Result is the outcome of discovering one source.
type Result struct {
	Candidates []domain.CandidateURL
	Failures   []EndpointFailure
}

// Engine dispatches endpoints to their discovery strategies.
type Engine struct {
	fetcher       ports.Fetcher
	logger        *slog.Logger
	endpointLimit int
}

// NewEngine wires the transport collaborator and the per-endpoint URL cap.
func NewEngine(fetcher ports.Fetcher, endpointLimit int, logger *slog.Logger) *Engine {
	if endpointLimit <= 0 {
		endpointLimit = 100
	}
	return &Engine{fetcher: fetcher, logger: logger, endpointLimit: endpointLimit}
}

// Discover walks every enabled endpoint of the source and merges candidates
// through the run-wide deduper. Endpoint failures are recorded, never raised.
func (e *Engine) Discover(ctx context.Context, src domain.Source, dedup *Deduper) Result {
	var res Result

	for _, ep := range src.Endpoints {
		if !ep.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res
		}

		cands, err := e.discoverEndpoint(ctx, src, ep)
		if err != nil {
			res.Failures = append(res.Failures, EndpointFailure{
				SourceName: src.Name,
				Endpoint:   ep.URL,
				Kind:       ep.Kind,
				Err:        err,
			})
			e.debug("endpoint failed", "source", src.Name, "endpoint", ep.URL, "error", err)
			continue
		}

		kept := 0
		for _, c := range cands {
			if dedup.Add(c.Normalized) {
				res.Candidates = append(res.Candidates, c)
				kept++
			}
		}
		e.debug("endpoint discovered",
			"source", src.Name, "endpoint", ep.URL, "kind", string(ep.Kind),
			"found", len(cands), "kept", kept)
	}

	return res
}

func (e *Engine) discoverEndpoint(ctx context.Context, src domain.Source, ep domain.Endpoint) ([]domain.CandidateURL, error) {
	base, err := url.Parse(ep.URL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint url: %w", err)
	}

	switch ep.Kind {
	case domain.KindFeed:
		return e.discoverFeed(ctx, src, ep, ep.URL)
	case domain.KindFeedDirectory:
		return e.discoverFeedDirectory(ctx, src, ep, base)
	case domain.KindSitemapIndex:
		return e.discoverSitemap(ctx, src, ep, base)
	case domain.KindHTMLListing:
		return e.discoverListing(ctx, src, ep, base)
	default:
		return nil, fmt.Errorf("unrecognized endpoint kind %q", string(ep.Kind))
	}
}

// candidate builds one CandidateURL with provenance; returns false when the
// raw URL does not normalize.
func (e *Engine) candidate(src domain.Source, ep domain.Endpoint, raw string) (domain.CandidateURL, bool) {
	norm, err := Normalize(raw)
	if err != nil {
		return domain.CandidateURL{}, false
	}
	return domain.CandidateURL{
		URL:        raw,
		Normalized: norm,
		Country:    src.Country,
		SourceName: src.Name,
		SourceSlug: src.Slug(),
		Endpoint:   ep.URL,
		Strategy:   ep.Kind,
	}, true
}

func (e *Engine) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	res, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if len(res.Body) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return res.Body, nil
}

func (e *Engine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
