package aggregator

import (
	"context"
	"testing"

	"github.com/careersignal/jobwatch/internal/store"
	"github.com/careersignal/jobwatch/internal/types"
)

type fakePostingStore struct {
	received []store.CandidateJob
	counts   types.UpsertCounts
}

func (f *fakePostingStore) Upsert(ctx context.Context, job store.CandidateJob) (types.UpsertOutcome, error) {
	f.received = append(f.received, job)
	return types.OutcomeNew, nil
}

func (f *fakePostingStore) UpsertBatch(ctx context.Context, jobs []store.CandidateJob) types.UpsertCounts {
	f.received = append(f.received, jobs...)
	return f.counts
}

func TestIngestMapsAggregatedJobsToCandidateJobs(t *testing.T) {
	postings := &fakePostingStore{counts: types.UpsertCounts{New: 2}}
	jobs := []types.AggregatedJob{
		{SourceSite: "aggregator.example.com", SourceURL: "https://x/1", Title: "Engineer", Company: "Acme"},
		{SourceSite: "aggregator.example.com", SourceURL: "https://x/2", Title: "Designer", Company: "Acme"},
	}

	counts := Ingest(context.Background(), postings, jobs)

	if counts.New != 2 {
		t.Fatalf("counts.New = %d, want 2", counts.New)
	}
	if len(postings.received) != 2 {
		t.Fatalf("received %d candidates, want 2", len(postings.received))
	}
	if postings.received[0].SourceURL != "https://x/1" || postings.received[0].Title != "Engineer" {
		t.Fatalf("received[0] = %+v", postings.received[0])
	}
}

func TestIngestEmptyInput(t *testing.T) {
	postings := &fakePostingStore{}
	counts := Ingest(context.Background(), postings, nil)
	if counts.New != 0 || len(postings.received) != 0 {
		t.Fatalf("expected no-op on empty input, got counts=%+v received=%d", counts, len(postings.received))
	}
}

var _ store.PostingStore = (*fakePostingStore)(nil)
