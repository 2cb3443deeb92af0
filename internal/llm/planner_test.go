package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCleanHTMLStripsScriptsStylesAndComments(t *testing.T) {
	html := `<html><head><title>x</title></head><body>
<script>alert(1)</script>
<style>.a{color:red}</style>
<!-- a comment -->
<div hidden class="x">hidden content</div>
<p>Visible   text</p>
</body></html>`

	cleaned := CleanHTML(html)
	for _, banned := range []string{"alert(1)", "color:red", "a comment", "hidden content", "<title>"} {
		if strings.Contains(cleaned, banned) {
			t.Fatalf("cleaned HTML still contains %q:\n%s", banned, cleaned)
		}
	}
	if !strings.Contains(cleaned, "Visible text") {
		t.Fatalf("expected visible text to survive with collapsed whitespace, got:\n%s", cleaned)
	}
}

func TestCleanHTMLTruncatesLongInput(t *testing.T) {
	html := strings.Repeat("a", maxHTMLChars+1000)
	cleaned := CleanHTML(html)
	if !strings.HasSuffix(cleaned, truncationMarker) {
		t.Fatal("expected a truncation marker on oversized input")
	}
	if len(cleaned) != maxHTMLChars+len(truncationMarker) {
		t.Fatalf("cleaned length = %d, want %d", len(cleaned), maxHTMLChars+len(truncationMarker))
	}
}

func TestPlanParsesOllamaResponse(t *testing.T) {
	inner := map[string]any{
		"jobs": []map[string]string{
			{"title": "Engineer", "company": "Acme", "job_url": "/jobs/1"},
		},
		"selectors": map[string]string{
			"job_list_selector": ".card",
		},
	}
	innerJSON, _ := json.Marshal(inner)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]string{"response": string(innerJSON)}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := New(Config{Provider: ProviderOllama, Endpoint: server.URL, Model: "llama3"}, testLogger())
	jobs, plan, err := client.Plan(context.Background(), "<html></html>", "https://jobs.example.com/x", "engineer")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title != "Engineer" {
		t.Fatalf("jobs = %+v", jobs)
	}
	if jobs[0].SourceURL != "/jobs/1" {
		t.Fatalf("jobs[0].SourceURL = %q, want job_url re-keyed verbatim", jobs[0].SourceURL)
	}
	if jobs[0].SourceSite != "jobs.example.com" {
		t.Fatalf("jobs[0].SourceSite = %q", jobs[0].SourceSite)
	}
	if plan == nil || plan.Selectors["job_list_selector"] != ".card" {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestPlanDropsJobsWithEmptyURL(t *testing.T) {
	inner := map[string]any{
		"jobs": []map[string]string{
			{"title": "No URL", "company": "Acme", "job_url": ""},
			{"title": "Has URL", "company": "Acme", "job_url": "/jobs/2"},
		},
	}
	innerJSON, _ := json.Marshal(inner)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": string(innerJSON)})
	}))
	defer server.Close()

	client := New(Config{Provider: ProviderOllama, Endpoint: server.URL}, testLogger())
	jobs, _, err := client.Plan(context.Background(), "<html></html>", "https://x.com", "kw")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title != "Has URL" {
		t.Fatalf("jobs = %+v, want only the job with a non-empty job_url", jobs)
	}
}

func TestPlanMalformedResponseYieldsEmptyNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "not json at all"})
	}))
	defer server.Close()

	client := New(Config{Provider: ProviderOllama, Endpoint: server.URL}, testLogger())
	jobs, plan, err := client.Plan(context.Background(), "<html></html>", "https://x.com", "kw")
	if err != nil {
		t.Fatalf("Plan should never return an error, got: %v", err)
	}
	if jobs != nil || plan != nil {
		t.Fatalf("expected (nil, nil) for malformed output, got (%v, %v)", jobs, plan)
	}
}

func TestPlanUnreachableProviderYieldsEmptyNotError(t *testing.T) {
	client := New(Config{Provider: ProviderOllama, Endpoint: "http://127.0.0.1:1"}, testLogger())
	jobs, plan, err := client.Plan(context.Background(), "<html></html>", "https://x.com", "kw")
	if err != nil {
		t.Fatalf("Plan should absorb transport errors, got: %v", err)
	}
	if jobs != nil || plan != nil {
		t.Fatalf("expected (nil, nil) on unreachable provider, got (%v, %v)", jobs, plan)
	}
}

func TestExtractJSONToleratesSurroundingProse(t *testing.T) {
	raw := "Sure, here is the result:\n```json\n" + `{"jobs": [], "selectors": null}` + "\n```\nHope that helps!"
	got := extractJSON(raw)
	var parsed llmResponse
	if err := json.Unmarshal([]byte(got), &parsed); err != nil {
		t.Fatalf("extractJSON output did not parse: %v\ngot: %s", err, got)
	}
}
