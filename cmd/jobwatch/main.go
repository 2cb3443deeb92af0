package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

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

var (
	cfgFile string
	verbose bool
)

// maxBrowserPages bounds the browser transport's tab pool, independent of
// the per-domain fetch concurrency the orchestrator enforces.
const maxBrowserPages = 3

func main() {
	rootCmd := &cobra.Command{
		Use:   "jobwatch",
		Short: "jobwatch — adaptive job-posting crawler",
		Long: `jobwatch periodically crawls career pages and job boards, extracts
structured job postings via a selector-cache-first / LLM-fallback pipeline, and
deduplicates them into MongoDB by content hash.

It accepts no arguments: it installs a cron trigger from its config, runs one
crawl immediately, then idles until a signal.`,
		RunE: run,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	orc, store, err := build(cfg, logger)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}
	defer store.Close(context.Background())

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return fmt.Errorf("invalid schedule.timezone %q: %w", cfg.Schedule.Timezone, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := scheduler.AddFunc(cfg.Schedule.Cron, func() {
		logger.Info("cron trigger fired")
		orc.Run(ctx)
	}); err != nil {
		return fmt.Errorf("invalid schedule.cron %q: %w", cfg.Schedule.Cron, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("running initial crawl")
	orc.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	return nil
}

// build wires every component the orchestrator depends on: the governor,
// the fingerprint pool, the proxy pool, the two fetch transports, the
// LLM planner, the extraction cache, and the Mongo-backed store.
func build(cfg *config.Config, logger *slog.Logger) (*orchestrator.Orchestrator, *store.Mongo, error) {
	g := governor.New(cfg.Governor.MinDelay, cfg.Governor.MaxDelay, cfg.Governor.CircuitBreakerThreshold, cfg.Governor.CircuitBreakerCooldown)

	var fprint *fingerprint.Pool
	if cfg.Fingerprint.UserAgentPoolPath != "" {
		pool, err := fingerprint.LoadPool(cfg.Fingerprint.UserAgentPoolPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load user agent pool: %w", err)
		}
		fprint = pool
	} else {
		fprint = fingerprint.NewPool(nil)
	}

	proxyPool, err := proxy.New(cfg.Proxy.URLs)
	if err != nil {
		return nil, nil, fmt.Errorf("build proxy pool: %w", err)
	}

	jsRenderEnabled := anyJSRender(cfg)
	ft, err := fetcher.NewDefault(g, fprint, proxyPool, jsRenderEnabled, maxBrowserPages, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build fetcher: %w", err)
	}

	planner := llm.New(llm.Config{
		Provider:    llm.Provider(cfg.LLM.Provider),
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.ModelKey,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, logger)

	ctx := context.Background()
	mongo, err := store.Connect(ctx, cfg.Database.URL, cfg.Database.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	extractionCache := cache.New(mongo.Plans(), planner, logger)
	orc := orchestrator.New(ft, extractionCache, mongo.Postings(), mongo.Runs(), nil, cfg.Searches, cfg.Governor.MaxConcurrentPerDomain, logger)

	return orc, mongo, nil
}

func anyJSRender(cfg *config.Config) bool {
	for _, search := range cfg.Searches {
		for _, page := range search.CompanyPages {
			if page.JSRender {
				return true
			}
		}
	}
	return false
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jobwatch %s\n", config.Version)
		},
	}
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
