package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/careersignal/jobwatch/internal/types"
)

// Mongo owns the three collections the persistence schema names —
// job_postings, crawl_runs, llm_pattern_cache — and hands out a
// PostingStore, RunStore, and PlanStore backed by them. Three thin
// wrapper types rather than one do-everything type, since Go doesn't
// let a single receiver carry two Upsert methods with different
// signatures.
type Mongo struct {
	client   *mongo.Client
	postings *mongo.Collection
	runs     *mongo.Collection
	plans    *mongo.Collection
	logger   *slog.Logger
}

// Connect dials MongoDB and ensures the unique indexes the persistence
// schema requires.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	db := client.Database(database)
	m := &Mongo{
		client:   client,
		postings: db.Collection("job_postings"),
		runs:     db.Collection("crawl_runs"),
		plans:    db.Collection("llm_pattern_cache"),
		logger:   logger.With("component", "mongo_store"),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.postings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "source_url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "source_site", Value: 1}}},
		{Keys: bson.D{{Key: "company", Value: 1}}},
		{Keys: bson.D{{Key: "search_keyword", Value: 1}}},
		{Keys: bson.D{{Key: "content_hash", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = m.plans.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "domain", Value: 1}, {Key: "page_signature", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Postings returns the PostingStore view over job_postings.
func (m *Mongo) Postings() PostingStore {
	return &mongoPostingStore{collection: m.postings, logger: m.logger}
}

// Runs returns the RunStore view over crawl_runs.
func (m *Mongo) Runs() RunStore {
	return &mongoRunStore{collection: m.runs}
}

// Plans returns the PlanStore view over llm_pattern_cache.
func (m *Mongo) Plans() PlanStore {
	return &mongoPlanStore{collection: m.plans}
}

type mongoPostingStore struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// Upsert implements component J: insert on a new source_url, no-op when
// the content hash is unchanged (the unchanged path never reaches a
// write), otherwise update the content-bearing fields. New-vs-updated is
// read off UpdateResult.UpsertedCount rather than compared timestamps,
// sidestepping the clock-skew problem naive timestamp comparison has.
func (s *mongoPostingStore) Upsert(ctx context.Context, job CandidateJob) (types.UpsertOutcome, error) {
	hash := ComputeContentHash(job.Title, job.Company, job.Description)
	filter := bson.M{"source_url": job.SourceURL}

	var existing struct {
		ContentHash string `bson:"content_hash"`
	}
	err := s.collection.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"content_hash": 1})).Decode(&existing)
	switch {
	case err == nil && existing.ContentHash == hash:
		return types.OutcomeUnchanged, nil
	case err != nil && err != mongo.ErrNoDocuments:
		return types.OutcomeError, &types.PersistenceError{Op: "upsert_lookup", Err: err}
	}

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"source_site":    job.SourceSite,
			"search_keyword": job.SearchKeyword,
			"title":          job.Title,
			"company":        job.Company,
			"location":       job.Location,
			"salary_range":   job.SalaryRange,
			"description":    job.Description,
			"posted_date":    job.PostedDate,
			"content_hash":   hash,
			"updated_at":     now,
		},
		"$setOnInsert": bson.M{
			"source_url": job.SourceURL,
			"crawled_at": now,
		},
	}

	result, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return types.OutcomeError, &types.PersistenceError{Op: "upsert_write", Err: err}
	}
	if result.UpsertedCount == 1 {
		return types.OutcomeNew, nil
	}
	return types.OutcomeUpdated, nil
}

// UpsertBatch aggregates per-job outcomes; a per-row error increments
// Error and the batch continues.
func (s *mongoPostingStore) UpsertBatch(ctx context.Context, jobs []CandidateJob) types.UpsertCounts {
	var counts types.UpsertCounts
	for _, job := range jobs {
		outcome, err := s.Upsert(ctx, job)
		if err != nil {
			s.logger.Warn("upsert failed", "source_url", job.SourceURL, "error", err)
			counts.Add(types.OutcomeError)
			continue
		}
		counts.Add(outcome)
	}
	return counts
}

type mongoRunStore struct {
	collection *mongo.Collection
}

// Open inserts a new running CrawlRun.
func (s *mongoRunStore) Open(ctx context.Context, keyword, source string) (*types.CrawlRun, error) {
	run := &types.CrawlRun{
		ID:        primitive.NewObjectID().Hex(),
		Keyword:   keyword,
		Source:    source,
		Status:    types.CrawlRunRunning,
		StartedAt: time.Now(),
	}
	if _, err := s.collection.InsertOne(ctx, run); err != nil {
		return nil, &types.PersistenceError{Op: "open_run", Err: err}
	}
	return run, nil
}

// Close marks run terminal with its final counts and status. failure, if
// non-nil, marks the run failed with its message regardless of counts.
func (s *mongoRunStore) Close(ctx context.Context, run *types.CrawlRun, counts types.UpsertCounts, failure error) error {
	now := time.Now()
	run.FinishedAt = &now
	run.NewCount = counts.New
	run.UpdatedCount = counts.Updated
	run.ErrorCount = counts.Error
	run.Status = types.CrawlRunCompleted
	if failure != nil {
		run.Status = types.CrawlRunFailed
		run.ErrorMessage = failure.Error()
	}

	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": run.ID}, bson.M{"$set": bson.M{
		"status":        run.Status,
		"finished_at":   run.FinishedAt,
		"new_count":     run.NewCount,
		"updated_count": run.UpdatedCount,
		"error_count":   run.ErrorCount,
		"error_message": run.ErrorMessage,
	}})
	if err != nil {
		return &types.PersistenceError{Op: "close_run", Err: err}
	}
	return nil
}

type mongoPlanStore struct {
	collection *mongo.Collection
}

// Get looks up the selector plan for (domain, pageSignature). A missing
// plan is not an error: it returns (nil, nil).
func (s *mongoPlanStore) Get(ctx context.Context, domain, pageSignature string) (*types.SelectorPlan, error) {
	var plan types.SelectorPlan
	err := s.collection.FindOne(ctx, bson.M{"domain": domain, "page_signature": pageSignature}).Decode(&plan)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, &types.PersistenceError{Op: "plan_lookup", Err: err}
	}
	return &plan, nil
}

// Upsert replaces the plan for (domain, pageSignature), last-writer-wins
// on the unique key — a signature never maps to more than one plan.
func (s *mongoPlanStore) Upsert(ctx context.Context, plan *types.SelectorPlan) error {
	filter := bson.M{"domain": plan.Domain, "page_signature": plan.PageSignature}
	update := bson.M{"$set": bson.M{
		"selectors":   plan.Selectors,
		"verified_at": plan.VerifiedAt,
	}}
	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return &types.PersistenceError{Op: "plan_upsert", Err: err}
	}
	return nil
}
