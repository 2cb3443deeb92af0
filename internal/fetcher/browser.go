package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/careersignal/jobwatch/internal/fingerprint"
)

// browserTransport implements JS-rendered fetching via a pooled Rod
// browser. Rod doesn't expose the real HTTP status code after
// navigation, so status is hardcoded to 200 on a clean navigation and a
// navigation error is treated as a transport failure by the caller.
type browserTransport struct {
	browser  *rod.Browser
	pagePool chan *rod.Page
}

// settleDelay is the fixed interval the browser transport waits after a
// page reports stable, letting late XHR-populated content finish
// rendering before the DOM is snapshotted.
const settleDelay = 2 * time.Second

// newBrowserTransport launches a headless Chromium instance and returns
// a transport backed by a bounded pool of pages, following the teacher's
// launch-flag set for running inside a container.
func newBrowserTransport(maxPages int) (*browserTransport, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &browserTransport{
		browser:  browser,
		pagePool: make(chan *rod.Page, maxPages),
	}, nil
}

func (t *browserTransport) fetch(ctx context.Context, target string, headers map[string]string, proxyURL *url.URL) (string, int, error) {
	page, err := t.getPage()
	if err != nil {
		return "", 0, err
	}
	defer t.putPage(page)

	stealthPage, err := stealth.Page(t.browser)
	if err != nil {
		return "", 0, fmt.Errorf("stealth page: %w", err)
	}
	page = stealthPage

	if ua, ok := headers["User-Agent"]; ok && ua != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua})
	}

	vpWidth, vpHeight := fingerprint.RandomViewport()
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vpWidth,
		Height:            vpHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})

	if len(headers) > 0 {
		extra := make([]string, 0, len(headers)*2)
		for k, v := range headers {
			if k == "User-Agent" {
				continue
			}
			extra = append(extra, k, v)
		}
		if len(extra) > 0 {
			_, _ = page.SetExtraHeaders(extra)
		}
	}

	deadline, hasDeadline := ctx.Deadline()
	timeout := 30 * time.Second
	if hasDeadline {
		timeout = time.Until(deadline)
	}

	if err := page.Timeout(timeout).Navigate(target); err != nil {
		return "", 0, err
	}
	if err := page.Timeout(timeout).WaitStable(300 * time.Millisecond); err != nil {
		// a slow or still-animating page is not a fetch failure; snapshot what loaded
	}

	select {
	case <-time.After(settleDelay):
	case <-ctx.Done():
	}

	html, err := page.HTML()
	if err != nil {
		return "", 0, err
	}

	return html, 200, nil
}

func (t *browserTransport) getPage() (*rod.Page, error) {
	select {
	case page := <-t.pagePool:
		return page, nil
	default:
		return t.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
}

func (t *browserTransport) putPage(page *rod.Page) {
	_ = page.Navigate("about:blank")
	select {
	case t.pagePool <- page:
	default:
		_ = page.Close()
	}
}

// Close shuts down the browser and releases pooled pages.
func (t *browserTransport) Close() error {
	close(t.pagePool)
	for page := range t.pagePool {
		_ = page.Close()
	}
	return t.browser.Close()
}
