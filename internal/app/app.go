// Package app wires configuration, adapters and use cases into a runnable
// application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"NewsWatch/internal/config"
	"NewsWatch/internal/infrastructure/catalog"
	"NewsWatch/internal/infrastructure/scheduler"
	"NewsWatch/internal/infrastructure/transport"
	"NewsWatch/internal/keywords"
	"NewsWatch/internal/logging"
	"NewsWatch/internal/runstore"
	"NewsWatch/internal/usecase"
)

// Application owns the wired pipeline and its lifecycle.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	catalog  *catalog.SQLiteCatalog
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := seedKeywordDefaults(cfg); err != nil {
		return nil, err
	}

	fetcher, err := transport.NewClient(cfg.Transport, baseLogger.With("component", "transport"))
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}

	store, err := runstore.New(cfg.Data.RunsDir(), baseLogger.With("component", "runstore"))
	if err != nil {
		return nil, fmt.Errorf("build run store: %w", err)
	}

	cat, err := catalog.Open(cfg.Data.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("open run catalog: %w", err)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Config:  cfg,
		Fetcher: fetcher,
		Store:   store,
		Catalog: cat,
		Logger:  baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		pipeline: pipeline,
		catalog:  cat,
	}, nil
}

// Run executes the pipeline once, or on the configured interval when the
// scheduler is enabled. It returns when the context is cancelled or, in
// single-run mode, when the run completes.
func (a *Application) Run(ctx context.Context) error {
	defer a.catalog.Close()

	if !a.cfg.Scheduler.Enabled {
		stats, err := a.pipeline.Execute(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("single run complete",
			"run_id", stats.RunID, "fetched", stats.Fetched, "shortlisted", stats.Shortlisted)
		return nil
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval())

	<-ctx.Done()
	return sched.Stop(context.Background())
}

// Default keyword terms written on first start so a fresh deployment
// classifies immediately. Operators edit the generated files afterwards.
var (
	defaultNationalTerms = []string{
		"Pakistan", "Pakistani", "Islamabad", "Karachi", "Lahore",
		"Peshawar", "Quetta", "Balochistan", "Khyber Pakhtunkhwa",
		"ISI", "Pak Army",
	}
	defaultThreatTerms = []string{
		"terrorism", "terrorist", "militant", "insurgent", "blast",
		"bombing", "suicide attack", "missile", "airstrike", "cross-border",
		"ceasefire violation", "IED",
	}
)

func seedKeywordDefaults(cfg config.Config) error {
	if err := keywords.EnsureDefaults(cfg.Data.NationalKeywordsPath(), defaultNationalTerms); err != nil {
		return fmt.Errorf("seed national keywords: %w", err)
	}
	if err := keywords.EnsureDefaults(cfg.Data.ThreatKeywordsPath(), defaultThreatTerms); err != nil {
		return fmt.Errorf("seed threat keywords: %w", err)
	}
	return nil
}
