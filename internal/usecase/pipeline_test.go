package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"NewsWatch/internal/config"
	"NewsWatch/internal/domain"
	"NewsWatch/internal/keywords"
	"NewsWatch/internal/ports"
	"NewsWatch/internal/runstore"
	"NewsWatch/internal/sources"
)

type stubFetcher struct {
	pages map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*ports.FetchResult, error) {
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return &ports.FetchResult{StatusCode: 200, Body: []byte(body), FinalURL: url}, nil
}

type recordingCatalog struct {
	mu        sync.Mutex
	summaries []domain.RunSummary
}

func (c *recordingCatalog) Record(_ context.Context, s domain.RunSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries = append(c.summaries, s)
	return nil
}

func (c *recordingCatalog) Recent(_ context.Context, limit int) ([]domain.RunSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.RunSummary(nil), c.summaries...), nil
}

func articlePage(title, topic string) string {
	para := fmt.Sprintf("Reporting on %s continued through the day with officials giving new details. ", topic)
	return fmt.Sprintf(`<html><head><title>%s</title>
<meta name="author" content="Staff Reporter">
<meta property="article:published_time" content="2026-05-04T06:00:00Z">
</head><body><article><p>%s</p><p>%s</p><p>%s</p></article></body></html>`,
		title, para, para, para)
}

const pipelineFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Dawn</title>
<item><title>Blast in Karachi kills three</title>
<link>https://www.dawn.com/news/1838571/blast-in-karachi</link>
<pubDate>Mon, 04 May 2026 06:00:00 GMT</pubDate></item>
<item><title>Cricket squad announced</title>
<link>https://www.dawn.com/news/1838572/cricket-squad</link>
<pubDate>Mon, 04 May 2026 07:00:00 GMT</pubDate></item>
</channel></rss>`

func seedDataDir(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		Data: config.DataConfig{Dir: dir},
		Pipeline: config.PipelineConfig{
			Concurrency:      2,
			EndpointURLLimit: 50,
			MinBodyChars:     100,
		},
	}

	err := sources.Save(cfg.Data.SourcesPath(), []domain.Source{{
		Country: "Pakistan",
		Name:    "Dawn",
		Enabled: true,
		Endpoints: []domain.Endpoint{
			{Kind: domain.KindFeed, URL: "https://www.dawn.com/feed", Enabled: true},
		},
	}})
	if err != nil {
		t.Fatalf("seed sources: %v", err)
	}
	if err := keywords.Save(cfg.Data.NationalKeywordsPath(), []string{"Pakistan", "Karachi"}); err != nil {
		t.Fatalf("seed national keywords: %v", err)
	}
	if err := keywords.Save(cfg.Data.ThreatKeywordsPath(), []string{"blast", "terrorism"}); err != nil {
		t.Fatalf("seed threat keywords: %v", err)
	}
	return cfg
}

func newTestPipeline(t *testing.T, cfg config.Config, fetcher ports.Fetcher, cat ports.Catalog) (*Pipeline, *runstore.Store) {
	t.Helper()
	store, err := runstore.New(cfg.Data.RunsDir(), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewPipeline(PipelineDeps{
		Config:  cfg,
		Fetcher: fetcher,
		Store:   store,
		Catalog: cat,
	}), store
}

func TestExecuteFullRun(t *testing.T) {
	t.Parallel()

	cfg := seedDataDir(t)
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.dawn.com/feed": pipelineFeed,
		"https://www.dawn.com/news/1838571/blast-in-karachi": articlePage(
			"Blast in Karachi kills three", "the blast in Karachi, Pakistan"),
		"https://www.dawn.com/news/1838572/cricket-squad": articlePage(
			"Cricket squad announced", "the cricket squad selection"),
	}}
	cat := &recordingCatalog{}
	p, store := newTestPipeline(t, cfg, fetcher, cat)

	stats, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if stats.Discovered != 2 || stats.Fetched != 2 {
		t.Fatalf("stats = %+v, want 2 discovered and fetched", stats)
	}
	if stats.Shortlisted != 1 {
		t.Fatalf("shortlisted = %d, want only the blast story", stats.Shortlisted)
	}
	if stats.FailedExtractions != 0 || stats.EndpointFailures != 0 || stats.Cancelled {
		t.Fatalf("stats = %+v", stats)
	}

	fetched, err := store.LoadFetched(stats.RunID)
	if err != nil {
		t.Fatalf("load fetched: %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("fetched on disk = %d", len(fetched))
	}
	short, err := store.LoadShortlisted(stats.RunID)
	if err != nil {
		t.Fatalf("load shortlisted: %v", err)
	}
	if len(short) != 1 || !strings.Contains(short[0].Title, "Blast in Karachi") {
		t.Fatalf("shortlisted on disk = %+v", short)
	}
	if short[0].RunID != stats.RunID || !short[0].NationalRelevant || !short[0].ThreatRelevant {
		t.Fatalf("shortlisted article = %+v", short[0])
	}

	if len(cat.summaries) != 1 || cat.summaries[0].RunID != stats.RunID || cat.summaries[0].Fetched != 2 {
		t.Fatalf("catalog = %+v", cat.summaries)
	}

	meta, err := store.LoadMeta(stats.RunID)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.Shortlisted != 1 {
		t.Fatalf("meta = %+v", meta)
	}
}

func TestExecuteRecordsFailedExtractions(t *testing.T) {
	t.Parallel()

	cfg := seedDataDir(t)
	// The second article URL has no fixture, so its fetch fails. The run
	// must finish and keep the failure in both stats and on-disk audit.
	fetcher := &stubFetcher{pages: map[string]string{
		"https://www.dawn.com/feed": pipelineFeed,
		"https://www.dawn.com/news/1838571/blast-in-karachi": articlePage(
			"Blast in Karachi kills three", "the blast in Karachi, Pakistan"),
	}}
	p, store := newTestPipeline(t, cfg, fetcher, nil)

	stats, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if stats.Fetched != 2 || stats.FailedExtractions != 1 {
		t.Fatalf("stats = %+v, want 1 failed extraction persisted", stats)
	}

	fetched, err := store.LoadFetched(stats.RunID)
	if err != nil {
		t.Fatalf("load fetched: %v", err)
	}
	failed := 0
	for _, art := range fetched {
		if art.Body == "" {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("failed articles on disk = %d, want 1", failed)
	}
}

func TestExecuteSurvivesEndpointFailure(t *testing.T) {
	t.Parallel()

	cfg := seedDataDir(t)
	// No fixtures at all: the feed endpoint fails, the run still completes
	// with the failure recorded.
	p, _ := newTestPipeline(t, cfg, &stubFetcher{pages: map[string]string{}}, nil)

	stats, err := p.Execute(context.Background())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if stats.EndpointFailures != 1 || stats.Discovered != 0 || stats.Fetched != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestExecuteFailsFastOnMissingSources(t *testing.T) {
	t.Parallel()

	cfg := seedDataDir(t)
	cfg.Data.Dir = t.TempDir() // empty dir, no sources.json

	p, _ := newTestPipeline(t, cfg, &stubFetcher{}, nil)
	if _, err := p.Execute(context.Background()); err == nil {
		t.Fatal("expected error without a source catalog")
	}
}

func TestExecuteCancelledBeforeWorkIsMarked(t *testing.T) {
	t.Parallel()

	cfg := seedDataDir(t)
	p, store := newTestPipeline(t, cfg, &stubFetcher{pages: map[string]string{
		"https://www.dawn.com/feed": pipelineFeed,
	}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := p.Execute(ctx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !stats.Cancelled {
		t.Fatalf("stats = %+v, want cancelled flag", stats)
	}
	if stats.Fetched != 0 {
		t.Fatalf("fetched = %d after pre-cancelled context", stats.Fetched)
	}

	meta, err := store.LoadMeta(stats.RunID)
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if meta.Note != "cancelled" {
		t.Fatalf("meta note = %q", meta.Note)
	}
}
