package selector

import (
	"testing"

	"github.com/careersignal/jobwatch/internal/types"
)

const samplePage = `
<html><body>
<div class="job-card">
  <h2 class="title">Backend Engineer</h2>
  <span class="company">Acme Corp</span>
  <span class="location">Remote</span>
  <span class="salary">$140k-$170k</span>
  <a class="link" href="/jobs/123">Apply</a>
</div>
<div class="job-card">
  <h2 class="title">  </h2>
  <span class="company">Ignored Co</span>
  <a class="link" href="/jobs/456">Apply</a>
</div>
<div class="job-card">
  <h2 class="title">Frontend Engineer</h2>
  <span class="location">NYC</span>
  <a class="link" href="https://other.example.com/jobs/789">Apply</a>
</div>
</body></html>
`

func samplePlan() *types.SelectorPlan {
	return &types.SelectorPlan{
		Domain: "jobs.example.com",
		Selectors: map[string]string{
			types.RoleJobList:  ".job-card",
			types.RoleTitle:    ".title",
			types.RoleCompany:  ".company",
			types.RoleLocation: ".location",
			types.RoleURL:      ".link",
			types.RoleSalary:   ".salary",
		},
	}
}

func TestExtractHappyPath(t *testing.T) {
	jobs := Extract(samplePage, samplePlan(), "https://jobs.example.com/search")

	if len(jobs) != 2 {
		t.Fatalf("got %d jobs, want 2 (the blank-title card must be skipped)", len(jobs))
	}
	if jobs[0].Title != "Backend Engineer" {
		t.Fatalf("jobs[0].Title = %q", jobs[0].Title)
	}
	if jobs[0].SourceURL != "https://jobs.example.com/jobs/123" {
		t.Fatalf("jobs[0].SourceURL = %q, want root-relative href resolved against base", jobs[0].SourceURL)
	}
	if jobs[0].SalaryRange != "$140k-$170k" {
		t.Fatalf("jobs[0].SalaryRange = %q", jobs[0].SalaryRange)
	}
}

func TestExtractFallsBackToHostnameForMissingCompany(t *testing.T) {
	jobs := Extract(samplePage, samplePlan(), "https://jobs.example.com/search")
	if len(jobs) < 2 {
		t.Fatalf("expected at least 2 jobs, got %d", len(jobs))
	}
	if jobs[1].Company != "jobs.example.com" {
		t.Fatalf("jobs[1].Company = %q, want hostname fallback", jobs[1].Company)
	}
}

func TestExtractKeepsAbsoluteHrefAsIs(t *testing.T) {
	jobs := Extract(samplePage, samplePlan(), "https://jobs.example.com/search")
	if len(jobs) < 2 {
		t.Fatalf("expected at least 2 jobs, got %d", len(jobs))
	}
	if jobs[1].SourceURL != "https://other.example.com/jobs/789" {
		t.Fatalf("jobs[1].SourceURL = %q, want absolute href preserved", jobs[1].SourceURL)
	}
}

func TestExtractEmptyJobListSelectorYieldsNil(t *testing.T) {
	plan := samplePlan()
	plan.Selectors[types.RoleJobList] = ""
	if got := Extract(samplePage, plan, "https://jobs.example.com/search"); got != nil {
		t.Fatalf("expected nil for an empty job_list_selector, got %v", got)
	}
}

func TestExtractInvalidSelectorSyntaxYieldsNilNotPanic(t *testing.T) {
	plan := samplePlan()
	plan.Selectors[types.RoleJobList] = ":::not-valid((("
	if got := Extract(samplePage, plan, "https://jobs.example.com/search"); got != nil {
		t.Fatalf("expected nil for invalid selector syntax, got %v", got)
	}
}

func TestExtractNoMatchingCardsYieldsNil(t *testing.T) {
	plan := samplePlan()
	plan.Selectors[types.RoleJobList] = ".does-not-exist"
	if got := Extract(samplePage, plan, "https://jobs.example.com/search"); got != nil {
		t.Fatalf("expected nil when no cards match, got %v", got)
	}
}

func TestExtractUnparsableBaseURLYieldsNil(t *testing.T) {
	if got := Extract(samplePage, samplePlan(), "://not-a-url"); got != nil {
		t.Fatalf("expected nil for an unparsable base URL, got %v", got)
	}
}
