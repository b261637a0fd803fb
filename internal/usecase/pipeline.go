// Package usecase orchestrates one acquisition run end to end: source and
// keyword loading, URL discovery, extraction, relevance classification and
// persistence into an immutable run.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NewsWatch/internal/config"
	"NewsWatch/internal/discovery"
	"NewsWatch/internal/domain"
	"NewsWatch/internal/extract"
	"NewsWatch/internal/funnel"
	"NewsWatch/internal/keywords"
	"NewsWatch/internal/ports"
	"NewsWatch/internal/runstore"
	"NewsWatch/internal/sources"
)

// RunStats summarizes one executed run.
type RunStats struct {
	RunID             string
	Discovered        int
	Fetched           int
	Shortlisted       int
	FailedExtractions int
	EndpointFailures  int
	Cancelled         bool
}

// PipelineDeps wires the driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Config  config.Config
	Fetcher ports.Fetcher
	Store   *runstore.Store
	Catalog ports.Catalog
	Logger  *slog.Logger
}

// Pipeline implements the acquisition workflow. Configuration files are
// re-read at the start of every run so edits take effect without a restart.
type Pipeline struct {
	cfg     config.Config
	fetcher ports.Fetcher
	store   *runstore.Store
	catalog ports.Catalog
	logger  *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		cfg:     deps.Config,
		fetcher: deps.Fetcher,
		store:   deps.Store,
		catalog: deps.Catalog,
		logger:  deps.Logger,
	}
}

// Execute performs one full run. Configuration problems and run-store
// failures abort the run with an error; endpoint and extraction failures are
// recorded in the stats and do not. Cancellation stops the run between
// articles, keeping everything already persisted.
func (p *Pipeline) Execute(ctx context.Context) (RunStats, error) {
	srcs, err := sources.Load(p.cfg.Data.SourcesPath())
	if err != nil {
		return RunStats{}, fmt.Errorf("load sources: %w", err)
	}

	national, err := keywords.Load(p.cfg.Data.NationalKeywordsPath())
	if err != nil {
		return RunStats{}, fmt.Errorf("load national keywords: %w", err)
	}
	threat, err := keywords.Load(p.cfg.Data.ThreatKeywordsPath())
	if err != nil {
		return RunStats{}, fmt.Errorf("load threat keywords: %w", err)
	}

	run, err := p.beginRun()
	if err != nil {
		return RunStats{}, err
	}

	stats := RunStats{RunID: run.ID()}
	p.info("run starting", "run_id", run.ID(), "sources", len(srcs))

	candidates, failures := p.discoverAll(ctx, srcs)
	stats.Discovered = len(candidates)
	stats.EndpointFailures = len(failures)
	for _, f := range failures {
		p.warn("endpoint failed", "source", f.SourceName, "endpoint", f.Endpoint, "error", f.Err)
	}

	p.processCandidates(ctx, run, candidates, keywords.Sets{National: national, Threat: threat}, &stats)
	stats.Cancelled = ctx.Err() != nil

	summary := domain.RunSummary{
		Discovered:        stats.Discovered,
		Fetched:           stats.Fetched,
		Shortlisted:       stats.Shortlisted,
		FailedExtractions: stats.FailedExtractions,
		EndpointFailures:  stats.EndpointFailures,
	}
	if stats.Cancelled {
		summary.Note = "cancelled"
	}
	if err := run.Close(summary); err != nil {
		return stats, fmt.Errorf("close run: %w", err)
	}

	if p.catalog != nil {
		// Catalog writes are best effort; the run directory is authoritative.
		summary.RunID = stats.RunID
		if err := p.catalog.Record(context.WithoutCancel(ctx), summary); err != nil {
			p.warn("catalog record failed", "run_id", stats.RunID, "error", err)
		}
	}

	p.info("run finished", "run_id", stats.RunID,
		"discovered", stats.Discovered, "fetched", stats.Fetched,
		"shortlisted", stats.Shortlisted, "failed_extractions", stats.FailedExtractions,
		"endpoint_failures", stats.EndpointFailures, "cancelled", stats.Cancelled)
	return stats, nil
}

// beginRun opens a fresh run, nudging the timestamp forward on a same-second
// collision with a previous run.
func (p *Pipeline) beginRun() (*runstore.Run, error) {
	start := time.Now().UTC()
	for attempt := 0; attempt < 3; attempt++ {
		run, err := p.store.Begin(start)
		if err == nil {
			return run, nil
		}
		if !errors.Is(err, runstore.ErrRunExists) {
			return nil, fmt.Errorf("begin run: %w", err)
		}
		start = start.Add(time.Second)
	}
	return nil, fmt.Errorf("begin run: no free run slot")
}

// discoverAll walks every enabled source concurrently. Deduplication is
// global: the same normalized URL reached through different endpoints or
// sources yields one candidate.
func (p *Pipeline) discoverAll(ctx context.Context, srcs []domain.Source) ([]domain.CandidateURL, []discovery.EndpointFailure) {
	engine := discovery.NewEngine(p.fetcher, p.cfg.Pipeline.EndpointURLLimit, p.logger)
	dedup := discovery.NewDeduper()

	var (
		mu         sync.Mutex
		candidates []domain.CandidateURL
		failures   []discovery.EndpointFailure
		wg         sync.WaitGroup
	)
	sem := make(chan struct{}, p.concurrency())

	for _, src := range srcs {
		if !src.Enabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(src domain.Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := engine.Discover(ctx, src, dedup)
			mu.Lock()
			candidates = append(candidates, res.Candidates...)
			failures = append(failures, res.Failures...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return candidates, failures
}

// processCandidates fans candidates out over a bounded worker pool. Each
// worker checks for cancellation between articles, so a stop request takes
// effect at the next article boundary.
func (p *Pipeline) processCandidates(ctx context.Context, run *runstore.Run, candidates []domain.CandidateURL, sets keywords.Sets, stats *RunStats) {
	extractor := extract.NewExtractor(p.fetcher, p.cfg.Pipeline.MinBodyChars, p.logger)
	classifier := funnel.New(sets, p.logger)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	jobs := make(chan domain.CandidateURL)

	for i := 0; i < p.concurrency(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cand := range jobs {
				if ctx.Err() != nil {
					continue
				}
				res := extractor.Extract(ctx, cand)
				art := classifier.Classify(res.Article)

				if err := run.SaveFetched(art); err != nil {
					p.warn("save article failed", "url", cand.URL, "error", err)
					continue
				}
				if art.Shortlisted {
					if err := run.SaveShortlisted(art); err != nil {
						p.warn("save shortlisted failed", "url", cand.URL, "error", err)
					}
				}

				mu.Lock()
				stats.Fetched++
				if res.Status == extract.StatusFailed {
					stats.FailedExtractions++
				}
				if art.Shortlisted {
					stats.Shortlisted++
				}
				mu.Unlock()
			}
		}()
	}

	for _, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		jobs <- cand
	}
	close(jobs)
	wg.Wait()
}

func (p *Pipeline) concurrency() int {
	if p.cfg.Pipeline.Concurrency <= 0 {
		return 8
	}
	return p.cfg.Pipeline.Concurrency
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
