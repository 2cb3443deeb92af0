// Package llm implements the narrow Planner capability: turning cleaned
// HTML into a set of job postings and, optionally, a reusable selector
// plan. The LLM provider itself is swappable (Ollama, OpenAI-compatible,
// or a custom REST endpoint) behind one Generate method, mirroring how
// the teacher's own LLM client dispatches by provider.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/careersignal/jobwatch/internal/selector"
	"github.com/careersignal/jobwatch/internal/types"
)

// Provider identifies which backend Generate talks to.
type Provider string

const (
	ProviderOllama Provider = "ollama"
	ProviderOpenAI Provider = "openai"
	ProviderCustom Provider = "custom"
)

const maxHTMLChars = 50000

const truncationMarker = "\n...[truncated]...\n"

// SystemPrompt is the fixed text specifying the response schema; the LLM
// boundary is a single synchronous call and this prompt is the entire
// contract governing its output.
const SystemPrompt = `You extract job postings from a career page's HTML.

Respond with exactly one JSON object and nothing else (no markdown fencing):

{
  "jobs": [
    {"title": "...", "company": "...", "location": "...", "salary_range": "...", "description": "...", "job_url": "...", "posted_date": "..."}
  ],
  "selectors": {
    "job_list_selector": "...",
    "title_selector": "...",
    "company_selector": "...",
    "location_selector": "...",
    "url_selector": "...",
    "salary_selector": "..."
  }
}

"selectors" must be null if you cannot identify a reliable repeating CSS pattern for job cards on this page. Every job must have a non-empty "job_url". Fields you cannot find should be empty strings, never omitted.`

// Config configures the underlying LLM client.
type Config struct {
	Provider    Provider
	Endpoint    string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

// Client is the narrow Planner capability: one method, plan, that takes
// cleaned HTML plus context and returns jobs and an optional selector
// plan. Core components depend on this interface, never on a concrete
// provider, so tests mock the capability rather than a provider SDK.
type Client interface {
	Plan(ctx context.Context, cleanedHTML, pageURL, keyword string) ([]selector.ExtractedJob, *types.SelectorPlan, error)
}

// HTTPClient implements Client by talking to a real LLM backend over
// HTTP, dispatching to the configured provider the way the teacher's
// LLMClient.Generate does.
type HTTPClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New builds an HTTPClient.
func New(cfg Config, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: 120 * time.Second},
		logger: logger.With("component", "llm_planner"),
	}
}

// Plan cleans html, calls the configured provider, and post-processes the
// response per the §4.H contract: malformed JSON yields ([], nil) rather
// than an error, since a planning failure must never halt the crawl.
func (c *HTTPClient) Plan(ctx context.Context, html, pageURL, keyword string) ([]selector.ExtractedJob, *types.SelectorPlan, error) {
	cleaned := CleanHTML(html)
	prompt := SystemPrompt + "\n\nPage URL: " + pageURL + "\nSearch keyword: " + keyword + "\n\nHTML:\n" + cleaned

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		c.logger.Warn("llm generate failed", "url", pageURL, "error", err)
		return nil, nil, nil
	}

	jobs, plan, parseErr := parseResponse(raw, pageURL, keyword)
	if parseErr != nil {
		wrapped := &types.ParseError{URL: pageURL, Err: parseErr}
		c.logger.Warn(wrapped.Error())
		return nil, nil, nil
	}
	return jobs, plan, nil
}

func (c *HTTPClient) generate(ctx context.Context, prompt string) (string, error) {
	switch c.cfg.Provider {
	case ProviderOllama:
		return c.generateOllama(ctx, prompt)
	case ProviderOpenAI:
		return c.generateOpenAI(ctx, prompt)
	case ProviderCustom:
		return c.generateCustom(ctx, prompt)
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider)
	}
}

func (c *HTTPClient) generateOllama(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return result.Response, nil
}

func (c *HTTPClient) generateOpenAI(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": SystemPrompt},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	}
	body, _ := json.Marshal(payload)
	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return result.Choices[0].Message.Content, nil
}

func (c *HTTPClient) generateCustom(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{"prompt": prompt, "model": c.cfg.Model, "system": SystemPrompt}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(respBody), nil
}

var (
	scriptStyleTag = regexp.MustCompile(`(?is)<(script|style|head)[^>]*>.*?</(script|style|head)>`)
	htmlComment    = regexp.MustCompile(`(?s)<!--.*?-->`)
	hiddenAttr     = regexp.MustCompile(`(?is)<([a-z][a-z0-9]*)\b[^>]*\bhidden\b[^>]*>`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

// CleanHTML strips scripts/styles/head/hidden elements, collapses
// whitespace, and truncates to 50,000 characters with an explicit marker.
func CleanHTML(html string) string {
	cleaned := scriptStyleTag.ReplaceAllString(html, "")
	cleaned = htmlComment.ReplaceAllString(cleaned, "")
	for loc := hiddenAttr.FindStringSubmatchIndex(cleaned); loc != nil; loc = hiddenAttr.FindStringSubmatchIndex(cleaned) {
		end := loc[1]
		closing := "</" + strings.ToLower(cleaned[loc[2]:loc[3]])
		if i := strings.Index(strings.ToLower(cleaned[end:]), closing); i >= 0 {
			if j := strings.Index(cleaned[end+i:], ">"); j >= 0 {
				end += i + j + 1
			}
		}
		cleaned = cleaned[:loc[0]] + cleaned[end:]
	}
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if len(cleaned) > maxHTMLChars {
		cleaned = cleaned[:maxHTMLChars] + truncationMarker
	}
	return cleaned
}

type llmJob struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	SalaryRange string `json:"salary_range"`
	Description string `json:"description"`
	JobURL      string `json:"job_url"`
	PostedDate  string `json:"posted_date"`
}

type llmResponse struct {
	Jobs      []llmJob           `json:"jobs"`
	Selectors *map[string]string `json:"selectors"`
}

// parseResponse implements the post-processing step of §4.H: parse the
// LLM's JSON (failure returns the parse error, which Plan turns into
// (nil, nil, nil)), drop jobs with an empty
// job_url, re-key job_url to source_url, and stamp source_site/keyword.
func parseResponse(raw, pageURL, keyword string) ([]selector.ExtractedJob, *types.SelectorPlan, error) {
	var parsed llmResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, nil, err
	}

	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Hostname()
	}

	var jobs []selector.ExtractedJob
	for _, j := range parsed.Jobs {
		if strings.TrimSpace(j.JobURL) == "" {
			continue
		}
		jobs = append(jobs, selector.ExtractedJob{
			Title:         j.Title,
			Company:       j.Company,
			Location:      j.Location,
			SalaryRange:   j.SalaryRange,
			Description:   j.Description,
			SourceURL:     j.JobURL,
			SourceSite:    host,
			SearchKeyword: keyword,
		})
	}

	var plan *types.SelectorPlan
	if parsed.Selectors != nil {
		plan = &types.SelectorPlan{
			Domain:    host,
			Selectors: *parsed.Selectors,
		}
	}

	return jobs, plan, nil
}

// extractJSON finds the first balanced top-level JSON object in s,
// tolerating any surrounding prose the model adds despite instructions.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return "{}"
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return "{}"
}
