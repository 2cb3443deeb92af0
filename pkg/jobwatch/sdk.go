// Package jobwatch provides a public SDK for embedding the crawler as a
// library, narrowed from the engine-wide OnHTML callback surface to the
// fixed extraction pipeline this system implements.
//
// Example usage:
//
//	w, err := jobwatch.New(cfg, jobwatch.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close(context.Background())
//
//	if err := w.RunOnce(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
package jobwatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/careersignal/jobwatch/internal/aggregator"
	"github.com/careersignal/jobwatch/internal/cache"
	"github.com/careersignal/jobwatch/internal/config"
	"github.com/careersignal/jobwatch/internal/fetcher"
	"github.com/careersignal/jobwatch/internal/fingerprint"
	"github.com/careersignal/jobwatch/internal/governor"
	"github.com/careersignal/jobwatch/internal/llm"
	"github.com/careersignal/jobwatch/internal/orchestrator"
	"github.com/careersignal/jobwatch/internal/proxy"
	"github.com/careersignal/jobwatch/internal/store"
)

// Watcher is the high-level API for embedding jobwatch as a library: it
// wires one orchestrator from a loaded Config and runs crawls on demand,
// without owning a scheduler or a CLI process lifecycle.
type Watcher struct {
	orc    *orchestrator.Orchestrator
	mongo  *store.Mongo
	logger *slog.Logger
}

// Option configures construction.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	maxBrowserPages int
	boardSearcher   aggregator.Searcher
}

// WithLogger overrides the default stderr logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxBrowserPages overrides the browser transport's tab pool size.
func WithMaxBrowserPages(n int) Option {
	return func(o *options) { o.maxBrowserPages = n }
}

// WithBoardSearcher injects an implementation of the external job-board
// aggregator collaborator. Without it, a configured job_boards target
// still opens and closes a CrawlRun but yields zero results.
func WithBoardSearcher(s aggregator.Searcher) Option {
	return func(o *options) { o.boardSearcher = s }
}

// New validates cfg and builds a Watcher, connecting to MongoDB and, if
// any configured target sets js_render, launching a headless browser.
func New(cfg *config.Config, opts ...Option) (*Watcher, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{
		logger:          slog.New(slog.NewTextHandler(os.Stderr, nil)),
		maxBrowserPages: 3,
	}
	for _, opt := range opts {
		opt(&o)
	}

	g := governor.New(cfg.Governor.MinDelay, cfg.Governor.MaxDelay, cfg.Governor.CircuitBreakerThreshold, cfg.Governor.CircuitBreakerCooldown)

	var fprint *fingerprint.Pool
	if cfg.Fingerprint.UserAgentPoolPath != "" {
		pool, err := fingerprint.LoadPool(cfg.Fingerprint.UserAgentPoolPath)
		if err != nil {
			return nil, fmt.Errorf("load user agent pool: %w", err)
		}
		fprint = pool
	} else {
		fprint = fingerprint.NewPool(nil)
	}

	proxyPool, err := proxy.New(cfg.Proxy.URLs)
	if err != nil {
		return nil, fmt.Errorf("build proxy pool: %w", err)
	}

	jsRenderEnabled := false
	for _, search := range cfg.Searches {
		for _, page := range search.CompanyPages {
			if page.JSRender {
				jsRenderEnabled = true
			}
		}
	}

	ft, err := fetcher.NewDefault(g, fprint, proxyPool, jsRenderEnabled, o.maxBrowserPages, o.logger)
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}

	planner := llm.New(llm.Config{
		Provider:    llm.Provider(cfg.LLM.Provider),
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.ModelKey,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, o.logger)

	mongo, err := store.Connect(context.Background(), cfg.Database.URL, cfg.Database.Database, o.logger)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	extractionCache := cache.New(mongo.Plans(), planner, o.logger)
	orc := orchestrator.New(ft, extractionCache, mongo.Postings(), mongo.Runs(), o.boardSearcher, cfg.Searches, cfg.Governor.MaxConcurrentPerDomain, o.logger)

	return &Watcher{orc: orc, mongo: mongo, logger: o.logger}, nil
}

// RunOnce executes a single crawl across every configured search target,
// blocking until it completes or ctx is cancelled.
func (w *Watcher) RunOnce(ctx context.Context) error {
	w.orc.Run(ctx)
	return ctx.Err()
}

// Close releases the underlying database connection.
func (w *Watcher) Close(ctx context.Context) error {
	return w.mongo.Close(ctx)
}
