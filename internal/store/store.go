// Package store persists job postings, crawl runs, and cached selector
// plans, and owns the content-hash-driven upsert/dedup logic (component
// J). The concrete backend is MongoDB, matching the teacher's storage
// layer; the three interfaces below let the orchestrator and the
// extraction cache depend on behavior rather than the driver.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/careersignal/jobwatch/internal/types"
)

// CandidateJob is the normalized job shape both the selector/LLM
// extraction path and the external aggregator collaborator produce, and
// the only input Upsert needs.
type CandidateJob struct {
	SourceSite    string
	SourceURL     string
	SearchKeyword string
	Title         string
	Company       string
	Location      string
	SalaryRange   string
	Description   string
	PostedDate    *time.Time
}

// PostingStore upserts job postings keyed by SourceURL.
type PostingStore interface {
	Upsert(ctx context.Context, job CandidateJob) (types.UpsertOutcome, error)
	UpsertBatch(ctx context.Context, jobs []CandidateJob) types.UpsertCounts
}

// RunStore records CrawlRun lifecycle.
type RunStore interface {
	Open(ctx context.Context, keyword, source string) (*types.CrawlRun, error)
	Close(ctx context.Context, run *types.CrawlRun, counts types.UpsertCounts, failure error) error
}

// PlanStore persists selector plans keyed by (domain, page_signature).
type PlanStore interface {
	Get(ctx context.Context, domain, pageSignature string) (*types.SelectorPlan, error)
	Upsert(ctx context.Context, plan *types.SelectorPlan) error
}

// ComputeContentHash is a pure function of (title, company, description):
// the 64-hex SHA-256 digest of "{title}|{company}|{description}".
func ComputeContentHash(title, company, description string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", title, company, description)))
	return hex.EncodeToString(sum[:])
}
