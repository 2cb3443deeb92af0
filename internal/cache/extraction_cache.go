// Package cache implements the extraction cache (component I): the
// decisive piece that keeps a repeat visit to a known page layout cheap,
// falling back to the LLM only when the cached selector plan no longer
// verifies against the current HTML.
package cache

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/careersignal/jobwatch/internal/llm"
	"github.com/careersignal/jobwatch/internal/selector"
	"github.com/careersignal/jobwatch/internal/signature"
	"github.com/careersignal/jobwatch/internal/store"
	"github.com/careersignal/jobwatch/internal/types"
)

// ExtractionCache wires SignatureHasher, the persistent plan store,
// SelectorExtractor, and LLMPlanner into the single extract operation
// component I names.
type ExtractionCache struct {
	plans  store.PlanStore
	llm    llm.Client
	logger *slog.Logger
}

// New builds an ExtractionCache.
func New(plans store.PlanStore, planner llm.Client, logger *slog.Logger) *ExtractionCache {
	return &ExtractionCache{
		plans:  plans,
		llm:    planner,
		logger: logger.With("component", "extraction_cache"),
	}
}

// Extract implements the four-step contract: hash the page, look up a
// cached plan, try the selector path, and fall back to the LLM when the
// cache misses or the cached plan no longer verifies (verification means
// the selector path returned at least one job).
func (c *ExtractionCache) Extract(ctx context.Context, html, pageURL, keyword string) ([]selector.ExtractedJob, error) {
	domain := host(pageURL)

	sig, err := signature.Compute(html)
	if err != nil {
		c.logger.Warn("signature computation failed", "url", pageURL, "error", err)
		return c.plan(ctx, html, pageURL, keyword, domain)
	}

	plan, err := c.plans.Get(ctx, domain, sig)
	if err != nil {
		c.logger.Warn("plan lookup failed", "domain", domain, "error", err)
	}

	if plan != nil {
		jobs := selector.Extract(html, plan, pageURL)
		if len(jobs) > 0 {
			return enrich(jobs, domain, keyword), nil
		}
		staleErr := &types.SelectorError{Domain: domain, PageSignature: sig}
		c.logger.Info(staleErr.Error(), "fallback", "llm")
	}

	jobs, llmPlan, err := c.llm.Plan(ctx, html, pageURL, keyword)
	if err != nil {
		return nil, err
	}

	if llmPlan != nil {
		llmPlan.Domain = domain
		llmPlan.PageSignature = sig
		llmPlan.VerifiedAt = time.Now()
		if err := c.plans.Upsert(ctx, llmPlan); err != nil {
			c.logger.Warn("plan upsert failed", "domain", domain, "error", err)
		}
	} else {
		c.logger.Debug(types.ErrNoPlan.Error(), "domain", domain)
	}

	return jobs, nil
}

// plan is the cold path taken when the page signature itself could not
// be computed: skip the cache lookup entirely and go straight to the LLM.
func (c *ExtractionCache) plan(ctx context.Context, html, pageURL, keyword, domain string) ([]selector.ExtractedJob, error) {
	jobs, _, err := c.llm.Plan(ctx, html, pageURL, keyword)
	if err != nil {
		return nil, err
	}
	return enrich(jobs, domain, keyword), nil
}

func enrich(jobs []selector.ExtractedJob, domain, keyword string) []selector.ExtractedJob {
	for i := range jobs {
		jobs[i].SourceSite = domain
		jobs[i].SearchKeyword = keyword
	}
	return jobs
}

func host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}
