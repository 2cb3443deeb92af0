// Package aggregator adapts the external job-board aggregator
// collaborator's output into the store's upsert path. The aggregator
// itself is out of scope (spec.md names only the data contract it must
// produce); this package is the thin seam between that contract and
// Upsert/Hashing, bypassing Fetcher and ExtractionCache entirely.
package aggregator

import (
	"context"

	"github.com/careersignal/jobwatch/internal/store"
	"github.com/careersignal/jobwatch/internal/types"
)

// Searcher is the external job-board aggregator collaborator's contract
// (spec.md §2, §7): given a keyword, location, and the configured board
// identifiers, it returns already-normalized job postings. The crawl
// pipeline depends on this interface rather than a concrete
// implementation, since the aggregator itself (e.g. a JobSpy-equivalent
// board scraper) is out of scope.
type Searcher interface {
	Search(ctx context.Context, keyword, location string, boards []string) ([]types.AggregatedJob, error)
}

// NoopSearcher is the zero-value Searcher: it returns no results and no
// error, standing in for the unconfigured external collaborator so a
// job_boards target still opens and closes a CrawlRun rather than
// needing a special case in the orchestrator.
type NoopSearcher struct{}

func (NoopSearcher) Search(ctx context.Context, keyword, location string, boards []string) ([]types.AggregatedJob, error) {
	return nil, nil
}

// Ingest upserts a batch of already-normalized AggregatedJob records
// straight into the posting store.
func Ingest(ctx context.Context, postings store.PostingStore, jobs []types.AggregatedJob) types.UpsertCounts {
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
			PostedDate:    j.PostedDate,
		})
	}
	return postings.UpsertBatch(ctx, candidates)
}
