// Package orchestrator implements component K: the top-level loop that
// iterates the configured (keyword, location, target) combinations,
// composing Fetcher, ExtractionCache, and the store into one crawl run
// per target while recording its lifecycle.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/careersignal/jobwatch/internal/aggregator"
	"github.com/careersignal/jobwatch/internal/cache"
	"github.com/careersignal/jobwatch/internal/config"
	"github.com/careersignal/jobwatch/internal/fetcher"
	"github.com/careersignal/jobwatch/internal/store"
	"github.com/careersignal/jobwatch/internal/types"
)

// jobBoardsSource is the CrawlRun source tag for a job-board-aggregator
// pass, mirroring the original source="jobspy" crawl run.
const jobBoardsSource = "jobspy"

// target is one resolved (keyword, location, url, js_render) combination
// ready to fetch.
type target struct {
	keyword  string
	location string
	url      string
	jsRender bool
	source   string
}

// Orchestrator owns the per-process Fetcher, ExtractionCache, and store
// handles and drives one crawl across every configured search.
type Orchestrator struct {
	fetcher       *fetcher.GovernedFetcher
	cache         *cache.ExtractionCache
	postings      store.PostingStore
	runs          store.RunStore
	boardSearcher aggregator.Searcher
	searches      []config.SearchConfig
	// perDomain bounds in-flight fetches per domain at max_concurrent_per_domain
	// (spec.md §5's reference concurrency contract (b)).
	perDomain      map[string]chan struct{}
	maxConcurrency int
	perDomainMu    sync.Mutex
	logger         *slog.Logger
}

// New builds an Orchestrator. A nil boardSearcher falls back to
// aggregator.NoopSearcher, since the job-board aggregator is an external
// collaborator spec.md names only the data contract for (§2, §7): the
// orchestrator can still open and close a CrawlRun for a job_boards
// target with zero results rather than needing a special case.
func New(f *fetcher.GovernedFetcher, c *cache.ExtractionCache, postings store.PostingStore, runs store.RunStore, boardSearcher aggregator.Searcher, searches []config.SearchConfig, maxConcurrentPerDomain int, logger *slog.Logger) *Orchestrator {
	if boardSearcher == nil {
		boardSearcher = aggregator.NoopSearcher{}
	}
	return &Orchestrator{
		fetcher:        f,
		cache:          c,
		postings:       postings,
		runs:           runs,
		boardSearcher:  boardSearcher,
		searches:       searches,
		perDomain:      make(map[string]chan struct{}),
		maxConcurrency: maxConcurrentPerDomain,
		logger:         logger.With("component", "orchestrator"),
	}
}

// Run executes one full crawl across every configured search, target,
// keyword, and location, never letting a panic or error escape: each
// target's failure is captured into its own CrawlRun's failed status.
func (o *Orchestrator) Run(ctx context.Context) {
	for _, search := range o.searches {
		for _, keyword := range search.Keywords {
			locations := search.Locations
			if len(locations) == 0 {
				locations = []string{""}
			}
			for _, location := range locations {
				if len(search.JobBoards) > 0 {
					o.runJobBoards(ctx, keyword, location, search.JobBoards)
				}
				for _, t := range resolveTargets(search, keyword, location) {
					o.runOne(ctx, t)
				}
			}
		}
	}
}

func (o *Orchestrator) runOne(ctx context.Context, t target) {
	o.acquire(hostOf(t.url))
	defer o.release(hostOf(t.url))

	run, err := o.runs.Open(ctx, t.keyword, t.source)
	if err != nil {
		o.logger.Error("failed to open crawl run", "source", t.source, "keyword", t.keyword, "error", err)
		return
	}

	counts, runErr := o.crawlTarget(ctx, t)
	if closeErr := o.runs.Close(ctx, run, counts, runErr); closeErr != nil {
		o.logger.Error("failed to close crawl run", "run_id", run.ID, "error", closeErr)
	}
}

// crawlTarget fetches the target, extracts jobs, and upserts them,
// converting any failure into a CrawlRun failure rather than a panic.
func (o *Orchestrator) crawlTarget(ctx context.Context, t target) (counts types.UpsertCounts, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during crawl: %v", r)
		}
	}()

	html, ok := o.fetcher.Fetch(ctx, t.url, t.jsRender)
	if !ok {
		return counts, fmt.Errorf("fetch failed or was blocked for %s", t.url)
	}

	jobs, extractErr := o.cache.Extract(ctx, html, t.url, t.keyword)
	if extractErr != nil {
		return counts, fmt.Errorf("extraction failed for %s: %w", t.url, extractErr)
	}

	candidates := make([]store.CandidateJob, 0, len(jobs))
	for _, j := range jobs {
		candidates = append(candidates, store.CandidateJob{
			SourceSite:    j.SourceSite,
			SourceURL:     j.SourceURL,
			SearchKeyword: j.SearchKeyword,
			Title:         j.Title,
			Company:       j.Company,
			Location:      j.Location,
			SalaryRange:   j.SalaryRange,
			Description:   j.Description,
		})
	}

	counts = o.postings.UpsertBatch(ctx, candidates)
	return counts, nil
}

// runJobBoards drives one job-board-aggregator pass for (keyword,
// location), opening and closing its own CrawlRun exactly like runOne
// but never touching Fetcher or ExtractionCache (spec.md §2, §7): the
// aggregator is an external collaborator whose output is already a
// normalized job list.
func (o *Orchestrator) runJobBoards(ctx context.Context, keyword, location string, boards []string) {
	run, err := o.runs.Open(ctx, keyword, jobBoardsSource)
	if err != nil {
		o.logger.Error("failed to open crawl run", "source", jobBoardsSource, "keyword", keyword, "error", err)
		return
	}

	counts, runErr := o.searchJobBoards(ctx, keyword, location, boards)
	if closeErr := o.runs.Close(ctx, run, counts, runErr); closeErr != nil {
		o.logger.Error("failed to close crawl run", "run_id", run.ID, "error", closeErr)
	}
}

// searchJobBoards calls the aggregator collaborator and ingests its
// already-normalized results, converting any failure or panic into a
// CrawlRun failure rather than letting it escape.
func (o *Orchestrator) searchJobBoards(ctx context.Context, keyword, location string, boards []string) (counts types.UpsertCounts, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during job board search: %v", r)
		}
	}()

	jobs, searchErr := o.boardSearcher.Search(ctx, keyword, location, boards)
	if searchErr != nil {
		return counts, fmt.Errorf("job board search failed for keyword %q: %w", keyword, searchErr)
	}
	for i := range jobs {
		jobs[i].SearchKeyword = keyword
	}

	counts = aggregator.Ingest(ctx, o.postings, jobs)
	return counts, nil
}

// acquire blocks until fewer than max_concurrent_per_domain fetches are
// in flight for domain, the per-domain semaphore spec.md §5 names as the
// reference mitigation for the delay-race it describes.
func (o *Orchestrator) acquire(domain string) {
	o.perDomainMu.Lock()
	sem, ok := o.perDomain[domain]
	if !ok {
		sem = make(chan struct{}, o.maxConcurrency)
		o.perDomain[domain] = sem
	}
	o.perDomainMu.Unlock()
	sem <- struct{}{}
}

func (o *Orchestrator) release(domain string) {
	o.perDomainMu.Lock()
	sem := o.perDomain[domain]
	o.perDomainMu.Unlock()
	<-sem
}

// resolveTargets expands one SearchConfig's company pages for a single
// (keyword, location) pair, substituting the {keyword} and {location}
// template placeholders per spec.md §6. Job boards are not Fetcher/Cache
// targets at all — they route through the aggregator collaborator in
// runJobBoards instead.
func resolveTargets(search config.SearchConfig, keyword, location string) []target {
	var targets []target
	for _, page := range search.CompanyPages {
		targets = append(targets, target{
			keyword:  keyword,
			location: location,
			url:      substitute(page.URL, keyword, location),
			jsRender: page.JSRender,
			source:   page.URL,
		})
	}
	return targets
}

// substitute fills {keyword}/{location} placeholders with URL-encoded
// values: spaces become '+', commas become '%2C', matching spec.md §6.
func substitute(tmpl, keyword, location string) string {
	result := strings.ReplaceAll(tmpl, "{keyword}", encode(keyword))
	result = strings.ReplaceAll(result, "{location}", encode(location))
	return result
}

// encode uses url.QueryEscape, which already produces '+' for spaces and
// '%2C' for commas, matching spec.md §6's substitution rule exactly.
func encode(s string) string {
	return url.QueryEscape(s)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
