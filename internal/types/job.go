package types

import "time"

// JobPosting is a single job listing as persisted in job_postings.
// Uniqueness is enforced on SourceURL; ContentHash is the SHA-256 hex
// digest of "{title}|{company}|{description}" and is recomputed whenever
// the content-bearing fields change.
type JobPosting struct {
	ID            string     `bson:"_id,omitempty"`
	SourceSite    string     `bson:"source_site"`
	SourceURL     string     `bson:"source_url"`
	SearchKeyword string     `bson:"search_keyword"`
	Title         string     `bson:"title"`
	Company       string     `bson:"company"`
	Location      string     `bson:"location,omitempty"`
	SalaryRange   string     `bson:"salary_range,omitempty"`
	Description   string     `bson:"description,omitempty"`
	PostedDate    *time.Time `bson:"posted_date,omitempty"`
	ContentHash   string     `bson:"content_hash"`
	CrawledAt     time.Time  `bson:"crawled_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

// AggregatedJob is the normalized shape produced by the external
// job-board aggregator collaborator. It bypasses the fetch and
// extraction-cache path entirely and is handed straight to Upsert.
type AggregatedJob struct {
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

// CrawlRunStatus enumerates the terminal and non-terminal states of a CrawlRun.
type CrawlRunStatus string

const (
	CrawlRunRunning   CrawlRunStatus = "running"
	CrawlRunCompleted CrawlRunStatus = "completed"
	CrawlRunFailed    CrawlRunStatus = "failed"
)

// CrawlRun records one (keyword, source) execution of the orchestrator.
type CrawlRun struct {
	ID           string         `bson:"_id,omitempty"`
	Keyword      string         `bson:"keyword"`
	Source       string         `bson:"source"`
	Status       CrawlRunStatus `bson:"status"`
	StartedAt    time.Time      `bson:"started_at"`
	FinishedAt   *time.Time     `bson:"finished_at,omitempty"`
	NewCount     int            `bson:"new_count"`
	UpdatedCount int            `bson:"updated_count"`
	ErrorCount   int            `bson:"error_count"`
	ErrorMessage string         `bson:"error_message,omitempty"`
}

// SelectorPlan is a cached set of CSS selectors sufficient to extract job
// postings from a page with a known structural signature. Unique by
// (Domain, PageSignature); Selectors is refreshed in place on successful
// re-planning while the key stays fixed.
type SelectorPlan struct {
	Domain        string            `bson:"domain"`
	PageSignature string            `bson:"page_signature"`
	Selectors     map[string]string `bson:"selectors"`
	VerifiedAt    time.Time         `bson:"verified_at"`
}

// Selector plan role names, per the extraction contract.
const (
	RoleJobList  = "job_list_selector"
	RoleTitle    = "title_selector"
	RoleCompany  = "company_selector"
	RoleLocation = "location_selector"
	RoleURL      = "url_selector"
	RoleSalary   = "salary_selector"
)

// UpsertOutcome is the result of upserting a single job posting.
type UpsertOutcome string

const (
	OutcomeNew       UpsertOutcome = "new"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeUnchanged UpsertOutcome = "unchanged"
	OutcomeError     UpsertOutcome = "error"
)

// UpsertCounts aggregates per-job outcomes of a batch upsert.
type UpsertCounts struct {
	New       int
	Updated   int
	Unchanged int
	Error     int
}

// Add increments the count matching outcome.
func (c *UpsertCounts) Add(outcome UpsertOutcome) {
	switch outcome {
	case OutcomeNew:
		c.New++
	case OutcomeUpdated:
		c.Updated++
	case OutcomeUnchanged:
		c.Unchanged++
	default:
		c.Error++
	}
}
