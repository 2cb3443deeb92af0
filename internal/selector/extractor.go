// Package selector implements DOM extraction driven by a cached selector
// plan: the hot path that makes a repeat visit to a known page layout
// cheap and deterministic instead of another LLM call.
package selector

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/careersignal/jobwatch/internal/types"
)

// ExtractedJob is a job posting as produced by the selector path (and by
// the LLM planner) — a narrower shape than types.JobPosting with no
// posted_date; the selector path always leaves Description empty.
type ExtractedJob struct {
	Title         string
	Company       string
	Location      string
	SourceURL     string
	SalaryRange   string
	Description   string
	SearchKeyword string
	SourceSite    string
}

// Extract runs plan's selectors against html and returns the resulting
// jobs. It never returns an error: a missing job_list_selector, HTML that
// fails to parse, a selector that matches nothing, or a selector with
// invalid syntax all just yield an empty or partial result — selector
// extraction only ever signals failure by returning zero jobs, which is
// ExtractionCache's cue to fall back to the LLM.
func Extract(html string, plan *types.SelectorPlan, baseURL string) []ExtractedJob {
	jobListSel := plan.Selectors[types.RoleJobList]
	if strings.TrimSpace(jobListSel) == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	cards := safeFind(doc.Selection, jobListSel)
	if cards == nil {
		return nil
	}

	var jobs []ExtractedJob
	cards.Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(textOf(card, plan.Selectors[types.RoleTitle]))
		if title == "" {
			return
		}

		company := strings.TrimSpace(textOf(card, plan.Selectors[types.RoleCompany]))
		if company == "" {
			company = base.Hostname()
		}

		jobs = append(jobs, ExtractedJob{
			Title:       title,
			Company:     company,
			Location:    strings.TrimSpace(textOf(card, plan.Selectors[types.RoleLocation])),
			SalaryRange: strings.TrimSpace(textOf(card, plan.Selectors[types.RoleSalary])),
			SourceURL:   resolveURL(card, plan.Selectors[types.RoleURL], base),
			Description: "",
		})
	})

	return jobs
}

// safeFind recovers from the panic goquery/cascadia raise on invalid
// selector syntax, returning nil in that case.
func safeFind(sel *goquery.Selection, selector string) (result *goquery.Selection) {
	if strings.TrimSpace(selector) == "" {
		return nil
	}
	defer func() {
		if recover() != nil {
			result = nil
		}
	}()
	found := sel.Find(selector)
	if found.Length() == 0 {
		return nil
	}
	return found
}

func textOf(card *goquery.Selection, selector string) string {
	found := safeFind(card, selector)
	if found == nil {
		return ""
	}
	return found.First().Text()
}

// resolveURL resolves the href matched by selector against base, per the
// extraction contract: absolute hrefs are used as-is, root-relative hrefs
// resolve against base's scheme+host, anything else yields an empty string.
func resolveURL(card *goquery.Selection, selector string, base *url.URL) string {
	found := safeFind(card, selector)
	if found == nil {
		return ""
	}
	href, ok := found.First().Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	parsed, err := url.Parse(href)
	if err == nil && parsed.IsAbs() {
		return href
	}
	if strings.HasPrefix(href, "/") {
		root := &url.URL{Scheme: base.Scheme, Host: base.Host}
		return root.String() + href
	}
	return ""
}
